// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/bar"
	"github.com/paiswap/paifarm/builtin/lockvault"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/migrator"
	"github.com/paiswap/paifarm/builtin/nested"
	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/staking"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/builtin/voter"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/state"
)

type contract struct {
	name    string
	kind    string
	Address farm.Address
	ABI     *abi.ABI
}

func newContract(name, kind string, abi *abi.ABI) *contract {
	return &contract{
		name:    name,
		kind:    kind,
		Address: farm.NameToAddress(name),
		ABI:     abi,
	}
}

func (c *contract) Name() string { return c.name }
func (c *contract) Kind() string { return c.kind }

// abis maps every contract kind to its event ABI.
var abis = map[string]*abi.ABI{
	token.Kind:       token.ABI,
	pair.Kind:        pair.ABI,
	pair.FactoryKind: pair.FactoryABI,
	master.Kind:      master.ABI,
	bar.Kind:         bar.ABI,
	voter.Kind:       voter.ABI,
	lockvault.Kind:   lockvault.ABI,
	staking.Kind:     staking.ABI,
	nested.Kind:      nested.ABI,
	migrator.Kind:    migrator.ABI,
}

// ABIOf returns the event ABI of the contract kind.
func ABIOf(kind string) (*abi.ABI, bool) {
	a, ok := abis[kind]
	return a, ok
}

// EventOf resolves an event emitted by the contract at addr from its id.
// Events shared by every contract, like ownership changes, are resolved too.
func EventOf(st *state.State, addr farm.Address, id farm.Bytes32) (*abi.Event, bool, error) {
	kind, err := solidity.KindAt(st, addr)
	if err != nil {
		return nil, false, err
	}
	// bars and pairs emit token events too
	for _, a := range []*abi.ABI{abis[kind], token.ABI, access.ABI} {
		if a == nil {
			continue
		}
		if ev, ok := a.EventByID(id); ok {
			return ev, true, nil
		}
	}
	return nil, false, nil
}
