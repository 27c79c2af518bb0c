// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/lvldb"
	"github.com/paiswap/paifarm/state"
)

type TestStruct struct {
	Field1 uint64
	Amount *uint256.Int
	Addr1  farm.Address
	Bytes1 farm.Bytes32
}

// newTestContext returns a fresh Context with in-memory DB.
func newTestContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContext(farm.Address{1}, state.New(db))
}

func TestMapping(t *testing.T) {
	ctx := newTestContext(t)
	m := NewMapping[farm.Address, TestStruct](ctx, Slot("users"))
	user := farm.BytesToAddress([]byte("alice"))

	got, err := m.Get(user)
	require.NoError(t, err)
	assert.Equal(t, TestStruct{}, got)

	ok, err := m.Exists(user)
	require.NoError(t, err)
	assert.False(t, ok)

	value := TestStruct{Field1: 7, Amount: uint256.NewInt(99), Addr1: user, Bytes1: farm.Bytes32{2}}
	require.NoError(t, m.Set(user, value))

	got, err = m.Get(user)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Field1)
	assert.Equal(t, uint64(99), got.Amount.Uint64())
	assert.Equal(t, user, got.Addr1)

	ok, _ = m.Exists(user)
	assert.True(t, ok)

	m.Delete(user)
	ok, _ = m.Exists(user)
	assert.False(t, ok)
}

func TestMappingPointerValue(t *testing.T) {
	ctx := newTestContext(t)
	m := NewMapping[Index, *TestStruct](ctx, Slot("ptr"))

	got, err := m.Get(Index(3))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(0), got.Field1)

	require.NoError(t, m.Set(Index(3), &TestStruct{Field1: 5, Amount: uint256.NewInt(1)}))
	got, err = m.Get(Index(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Field1)
}

func TestPairKeysDoNotCollide(t *testing.T) {
	ctx := newTestContext(t)
	m := NewMapping[PairKey[farm.Address, farm.Address], uint64](ctx, Slot("allowance"))
	a, b := farm.Address{1}, farm.Address{2}

	require.NoError(t, m.Set(NewPairKey(a, b), 10))
	got, _ := m.Get(NewPairKey(b, a))
	assert.Equal(t, uint64(0), got)
	got, _ = m.Get(NewPairKey(a, b))
	assert.Equal(t, uint64(10), got)
}

func TestUint256(t *testing.T) {
	ctx := newTestContext(t)
	u := NewUint256(ctx, Slot("supply"))

	v, err := u.Get()
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	require.NoError(t, u.Add(uint256.NewInt(100)))
	require.NoError(t, u.Sub(uint256.NewInt(40)))
	v, _ = u.Get()
	assert.Equal(t, uint64(60), v.Uint64())

	assert.ErrorIs(t, u.Sub(uint256.NewInt(61)), ErrUnderflow)
	v, _ = u.Get()
	assert.Equal(t, uint64(60), v.Uint64())
}

func TestAddressAndRaw(t *testing.T) {
	ctx := newTestContext(t)
	owner := NewAddress(ctx, Slot("owner"))
	alice := farm.BytesToAddress([]byte("alice"))

	got, err := owner.Get()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	owner.Set(alice)
	got, _ = owner.Get()
	assert.Equal(t, alice, got)

	raw := NewRaw[TestStruct](ctx, Slot("config"))
	require.NoError(t, raw.Set(TestStruct{Field1: 3, Amount: uint256.NewInt(4)}))
	cfg, err := raw.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cfg.Field1)
	assert.Equal(t, uint64(4), cfg.Amount.Uint64())
}

func TestArray(t *testing.T) {
	ctx := newTestContext(t)
	arr := NewArray[farm.Address](ctx, Slot("pools"))

	n, err := arr.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	for i := byte(1); i <= 3; i++ {
		idx, err := arr.Push(farm.Address{i})
		require.NoError(t, err)
		assert.Equal(t, uint64(i-1), idx)
	}
	v, err := arr.Get(1)
	require.NoError(t, err)
	assert.Equal(t, farm.Address{2}, v)

	require.NoError(t, arr.Set(1, farm.Address{9}))
	v, _ = arr.Get(1)
	assert.Equal(t, farm.Address{9}, v)

	_, err = arr.Get(3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, arr.Pop())
	n, _ = arr.Len()
	assert.Equal(t, uint64(2), n)
}

func TestConfigVariable(t *testing.T) {
	ctx := newTestContext(t)

	interval := NewConfigVariable("withdraw-interval", 28800)
	interval.Override(ctx)
	assert.Equal(t, uint64(28800), interval.Get())

	overridden := NewConfigVariable("withdraw-interval", 28800)
	overridden.Write(ctx, 10)
	overridden.Override(ctx)
	assert.Equal(t, uint64(10), overridden.Get())
	assert.Equal(t, "withdraw-interval", overridden.Name())
	assert.Equal(t, farm.BytesToBytes32([]byte("withdraw-interval")), overridden.Slot())

	// later writes are ignored once loaded
	overridden.Write(ctx, 20)
	overridden.Override(ctx)
	assert.Equal(t, uint64(10), overridden.Get())
}
