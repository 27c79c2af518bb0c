// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"math/big"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/farm"
)

// Event see abi.Event in go-ethereum.
type Event struct {
	id                 farm.Bytes32
	event              *ethabi.Event
	argsWithoutIndexed ethabi.Arguments
}

func newEvent(event *ethabi.Event) *Event {
	return &Event{
		farm.Bytes32(event.ID),
		event,
		event.Inputs.NonIndexed(),
	}
}

// ID returns event id.
func (e *Event) ID() farm.Bytes32 {
	return e.id
}

// Name returns event name.
func (e *Event) Name() string {
	return e.event.Name
}

// Sig returns the canonical signature, e.g. Deposit(address,uint256,uint256).
func (e *Event) Sig() string {
	return e.event.Sig
}

// Encode encodes args to data.
// Domain types are converted to the types the packer expects.
func (e *Event) Encode(args ...any) ([]byte, error) {
	packed := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case farm.Address:
			packed[i] = common.Address(v)
		case farm.Bytes32:
			packed[i] = [32]byte(v)
		case *uint256.Int:
			packed[i] = v.ToBig()
		case uint64:
			packed[i] = new(big.Int).SetUint64(v)
		default:
			packed[i] = arg
		}
	}
	return e.argsWithoutIndexed.Pack(packed...)
}

// Decode decodes event data.
func (e *Event) Decode(data []byte, v any) error {
	values, err := e.argsWithoutIndexed.Unpack(data)
	if err != nil {
		return err
	}
	return e.argsWithoutIndexed.Copy(v, values)
}

// Values decodes event data into a slice in declaration order.
func (e *Event) Values(data []byte) ([]any, error) {
	return e.argsWithoutIndexed.Unpack(data)
}

// IndexedNames returns the names of the indexed arguments, in topic order.
func (e *Event) IndexedNames() []string {
	var names []string
	for _, arg := range e.event.Inputs {
		if arg.Indexed {
			names = append(names, arg.Name)
		}
	}
	return names
}

// DataNames returns the names of the non indexed arguments.
func (e *Event) DataNames() []string {
	names := make([]string, 0, len(e.argsWithoutIndexed))
	for _, arg := range e.argsWithoutIndexed {
		names = append(names, arg.Name)
	}
	return names
}
