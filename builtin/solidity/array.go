// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/farm"
)

var (
	ErrUnderflow  = errors.New("uint256 underflow")
	ErrOutOfRange = errors.New("index out of range")
)

// Array is a dynamic array, similar to T[] in Solidity.
type Array[T any] struct {
	length *Uint256
	items  *Mapping[Index, T]
}

func NewArray[T any](context *Context, pos farm.Bytes32) *Array[T] {
	return &Array[T]{
		length: NewUint256(context, pos),
		items:  NewMapping[Index, T](context, farm.Blake2b(pos.Bytes())),
	}
}

func (a *Array[T]) Len() (uint64, error) {
	n, err := a.length.Get()
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// Push appends value and returns its index.
func (a *Array[T]) Push(value T) (uint64, error) {
	n, err := a.Len()
	if err != nil {
		return 0, err
	}
	if err := a.items.Set(Index(n), value); err != nil {
		return 0, err
	}
	a.length.Set(uint256.NewInt(n + 1))
	return n, nil
}

func (a *Array[T]) Get(i uint64) (value T, err error) {
	n, err := a.Len()
	if err != nil {
		return value, err
	}
	if i >= n {
		return value, ErrOutOfRange
	}
	return a.items.Get(Index(i))
}

func (a *Array[T]) Set(i uint64, value T) error {
	n, err := a.Len()
	if err != nil {
		return err
	}
	if i >= n {
		return ErrOutOfRange
	}
	return a.items.Set(Index(i), value)
}

// Pop removes the last element.
func (a *Array[T]) Pop() error {
	n, err := a.Len()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOutOfRange
	}
	a.items.Delete(Index(n - 1))
	a.length.Set(uint256.NewInt(n - 1))
	return nil
}
