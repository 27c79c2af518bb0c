// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"encoding/binary"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/paiswap/paifarm/farm"
)

type Key interface {
	Bytes() []byte
}

// Index is a numeric mapping key, such as a pool id.
type Index uint64

func (i Index) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(i))
}

// PairKey combines two keys, like a nested mapping(a => mapping(b => v)).
type PairKey[A, B Key] struct {
	First  A
	Second B
}

func (k PairKey[A, B]) Bytes() []byte {
	return append(append([]byte(nil), k.First.Bytes()...), k.Second.Bytes()...)
}

// NewPairKey builds a composite key.
func NewPairKey[A, B Key](a A, b B) PairKey[A, B] {
	return PairKey[A, B]{a, b}
}

// Mapping is a key/value storage abstraction for built-in contracts, similar to the mapping in Solidity.
// It DOES NOT allow for direct access to values if declared in the same `pos` in the built-in contract.
type Mapping[K Key, V any] struct {
	context *Context
	basePos farm.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos farm.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) farm.Bytes32 {
	return farm.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get decodes the value under key. A missing value decodes as the zero value,
// and a pointer V is allocated so callers never see nil.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Exists reports whether a value was ever stored under key and not deleted.
func (m *Mapping[K, V]) Exists(key K) (bool, error) {
	raw, err := m.context.state.GetRawStorage(m.context.address, m.position(key))
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the value under key.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}
