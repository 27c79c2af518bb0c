// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node serves the status of the running farm.
package node

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paiswap/paifarm/api/restutil"
	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/xenv"
)

type Contract struct {
	Name     string       `json:"name"`
	Kind     string       `json:"kind"`
	Address  farm.Address `json:"address"`
	Deployed bool         `json:"deployed"`
}

type Status struct {
	Block uint64 `json:"block"`
	// IndexedBlock is the newest block whose receipts reached the log db.
	IndexedBlock *uint64    `json:"indexedBlock"`
	Contracts    []Contract `json:"contracts"`
}

type Node struct {
	rt *runtime.Runtime
	db *logdb.LogDB
}

func New(rt *runtime.Runtime, db *logdb.LogDB) *Node {
	return &Node{rt, db}
}

func (n *Node) status() (*Status, error) {
	var s Status
	if err := n.rt.Call(farm.Address{}, func(env *xenv.Environment) error {
		s.Block = env.BlockNumber()
		for _, c := range builtin.Contracts() {
			kind, err := solidity.KindAt(env.State(), c.Address)
			if err != nil {
				return err
			}
			s.Contracts = append(s.Contracts, Contract{
				Name:     c.Name(),
				Kind:     c.Kind(),
				Address:  c.Address,
				Deployed: kind == c.Kind(),
			})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if n.db != nil {
		block, ok, err := n.db.NewestBlock()
		if err != nil {
			return nil, err
		}
		if ok {
			s.IndexedBlock = &block
		}
	}
	return &s, nil
}

func (n *Node) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	s, err := n.status()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, s)
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("GET /node/status").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleGetStatus))
}
