// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package voting serves the voting power derived by the voter.
package voting

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/api/restutil"
	"github.com/paiswap/paifarm/builtin/voter"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/xenv"
)

type Weights struct {
	PoolWeight       uint64 `json:"poolWeight"`
	WalletWeight     uint64 `json:"walletWeight"`
	DerivativeWeight uint64 `json:"derivativeWeight"`
	SqrtEnabled      bool   `json:"sqrtEnabled"`
}

type Summary struct {
	Block       uint64       `json:"block"`
	TotalSupply *uint256.Int `json:"totalSupply"`
	Weights     Weights      `json:"weights"`
	VotePools   []uint64     `json:"votePools"`
}

type Power struct {
	Block   uint64       `json:"block"`
	Address farm.Address `json:"address"`
	Balance *uint256.Int `json:"balance"`
}

type Voting struct {
	rt    *runtime.Runtime
	voter farm.Address
}

func New(rt *runtime.Runtime, voter farm.Address) *Voting {
	return &Voting{rt, voter}
}

func (v *Voting) view(fn func(vt *voter.Voter, block uint64) error) error {
	return v.rt.Call(farm.Address{}, func(env *xenv.Environment) error {
		return fn(voter.New(v.voter, env.State()), env.BlockNumber())
	})
}

func (v *Voting) handleGetSummary(w http.ResponseWriter, _ *http.Request) error {
	var s Summary
	if err := v.view(func(vt *voter.Voter, block uint64) (err error) {
		s.Block = block
		if s.TotalSupply, err = vt.TotalSupply(); err != nil {
			return err
		}
		weights, err := vt.Weights()
		if err != nil {
			return err
		}
		s.Weights = Weights(weights)
		s.VotePools, err = vt.VotePools()
		return err
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, &s)
}

func (v *Voting) handleGetPower(w http.ResponseWriter, req *http.Request) error {
	addr, err := restutil.ParseAddress("address", mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	p := Power{Address: addr}
	if err := v.view(func(vt *voter.Voter, block uint64) (err error) {
		p.Block = block
		p.Balance, err = vt.BalanceOf(addr)
		return err
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, &p)
}

func (v *Voting) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /voting").
		HandlerFunc(restutil.WrapHandlerFunc(v.handleGetSummary))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("GET /voting/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(v.handleGetPower))
}
