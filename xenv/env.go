// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/tx"
)

// BlockContext block context.
type BlockContext struct {
	Number uint64
}

// TransactionContext transaction context.
type TransactionContext struct {
	ID     farm.Bytes32
	Origin farm.Address
}

// Environment an env to execute contract operations.
// Nested calls share the state and the event sink of the outer call.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	txCtx    *TransactionContext
	caller   farm.Address
	events   *tx.Events
}

// New create a new env whose caller is the transaction origin.
func New(
	state *state.State,
	blockCtx *BlockContext,
	txCtx *TransactionContext,
) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		txCtx:    txCtx,
		caller:   txCtx.Origin,
		events:   &tx.Events{},
	}
}

func (env *Environment) State() *state.State                     { return env.state }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) BlockContext() *BlockContext             { return env.blockCtx }
func (env *Environment) BlockNumber() uint64                     { return env.blockCtx.Number }

// Caller returns the immediate caller, which is a contract for nested calls.
func (env *Environment) Caller() farm.Address { return env.caller }

// As returns the env seen by a contract that contract calls.
func (env *Environment) As(contract farm.Address) *Environment {
	cpy := *env
	cpy.caller = contract
	return &cpy
}

// Events returns the events emitted so far.
func (env *Environment) Events() tx.Events {
	return *env.events
}

// Log emits an event. topics exclude the event id, which is always the first topic.
func (env *Environment) Log(event *abi.Event, address farm.Address, topics []farm.Bytes32, args ...any) error {
	data, err := event.Encode(args...)
	if err != nil {
		return errors.WithMessage(err, "encode event "+event.Name())
	}
	*env.events = append(*env.events, &tx.Event{
		Address: address,
		Topics:  append([]farm.Bytes32{event.ID()}, topics...),
		Data:    data,
	})
	return nil
}

// AddressTopic pads an address into a topic word.
func AddressTopic(addr farm.Address) farm.Bytes32 {
	return farm.BytesToBytes32(addr.Bytes())
}

// Uint64Topic pads a number into a topic word.
func Uint64Topic(n uint64) farm.Bytes32 {
	var t farm.Bytes32
	binary.BigEndian.PutUint64(t[24:], n)
	return t
}
