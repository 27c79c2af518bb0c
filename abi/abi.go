// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"bytes"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/farm"
)

// ABI holds the events of a contract.
type ABI struct {
	nameToEvent map[string]*Event
	events      map[farm.Bytes32]*Event
}

// New create an ABI instance from its json description.
func New(data []byte) (*ABI, error) {
	parsed, err := ethabi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse abi")
	}
	abi := &ABI{
		nameToEvent: make(map[string]*Event),
		events:      make(map[farm.Bytes32]*Event),
	}
	for name := range parsed.Events {
		ethEvent := parsed.Events[name]
		event := newEvent(&ethEvent)
		abi.events[event.ID()] = event
		abi.nameToEvent[name] = event
	}
	return abi, nil
}

// MustNew is New that panics on error, for abi compiled into the binary.
func MustNew(data []byte) *ABI {
	abi, err := New(data)
	if err != nil {
		panic(err)
	}
	return abi
}

// EventByName find event for the given event name.
func (a *ABI) EventByName(name string) (*Event, bool) {
	e, found := a.nameToEvent[name]
	return e, found
}

// MustEventByName is EventByName that panics when the event is not declared.
func (a *ABI) MustEventByName(name string) *Event {
	e, found := a.nameToEvent[name]
	if !found {
		panic(errors.Errorf("event %s not found", name))
	}
	return e
}

// EventByID find event for the given event id.
func (a *ABI) EventByID(id farm.Bytes32) (*Event, bool) {
	e, found := a.events[id]
	return e, found
}
