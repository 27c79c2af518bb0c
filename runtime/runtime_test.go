// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/lvldb"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/tx"
	"github.com/paiswap/paifarm/xenv"
)

var (
	alice   = farm.BytesToAddress([]byte("alice"))
	vault   = farm.BytesToAddress([]byte("vault"))
	slot    = farm.BytesToBytes32([]byte("slot"))
	total   = farm.BytesToBytes32([]byte("total"))
	joinEvt = abi.MustNew(gen.MustABI("lockvault")).MustEventByName("Joined")
)

func newRuntime(t *testing.T) (*Runtime, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(state.New(db), 100), db
}

func write(value byte) Operation {
	return func(env *xenv.Environment) error {
		env.State().SetStorage(vault, slot, farm.BytesToBytes32([]byte{value}))
		return env.Log(joinEvt, vault, []farm.Bytes32{xenv.Uint64Topic(uint64(value))})
	}
}

func TestExecuteCommit(t *testing.T) {
	rt, _ := newRuntime(t)

	var seen []*tx.Receipt
	rt.OnReceipt(func(r *tx.Receipt) { seen = append(seen, r) })

	receipt, err := rt.Execute(alice, "join", write(1))
	require.NoError(t, err)
	assert.False(t, receipt.Reverted)
	assert.Equal(t, uint64(100), receipt.BlockNumber)
	assert.Equal(t, "join", receipt.Method)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, joinEvt.ID(), receipt.Events[0].Topics[0])
	assert.Len(t, seen, 1)

	v, err := rt.State().GetStorage(vault, slot)
	require.NoError(t, err)
	assert.Equal(t, farm.BytesToBytes32([]byte{1}), v)
}

func TestExecuteRevertDiscardsEffects(t *testing.T) {
	rt, _ := newRuntime(t)
	_, err := rt.Execute(alice, "join", write(1))
	require.NoError(t, err)

	receipt, err := rt.Execute(alice, "join", func(env *xenv.Environment) error {
		if err := write(2)(env); err != nil {
			return err
		}
		env.State().SetStorage(vault, total, farm.BytesToBytes32([]byte{9}))
		return reverts.New(reverts.LockedPeriod, "vault: locked")
	})
	assert.True(t, reverts.Is(err, reverts.LockedPeriod))
	require.NotNil(t, receipt)
	assert.True(t, receipt.Reverted)
	assert.Equal(t, "vault: locked", receipt.RevertReason)
	assert.Empty(t, receipt.Events)

	v, _ := rt.State().GetStorage(vault, slot)
	assert.Equal(t, farm.BytesToBytes32([]byte{1}), v)
	v, _ = rt.State().GetStorage(vault, total)
	assert.True(t, v.IsZero())

	assert.Len(t, rt.Receipts(), 2)
}

func TestExecuteFailureHasNoReceipt(t *testing.T) {
	rt, _ := newRuntime(t)
	receipt, err := rt.Execute(alice, "broken", func(env *xenv.Environment) error {
		env.State().SetStorage(vault, slot, farm.BytesToBytes32([]byte{3}))
		return errors.New("disk on fire")
	})
	assert.Nil(t, receipt)
	assert.EqualError(t, err, "broken: disk on fire")
	assert.False(t, reverts.IsRevertErr(err))
	assert.Empty(t, rt.Receipts())

	v, _ := rt.State().GetStorage(vault, slot)
	assert.True(t, v.IsZero())
}

func TestCallDiscardsEffects(t *testing.T) {
	rt, _ := newRuntime(t)
	var seenBlock uint64
	require.NoError(t, rt.Call(alice, func(env *xenv.Environment) error {
		seenBlock = env.BlockNumber()
		env.State().SetStorage(vault, slot, farm.BytesToBytes32([]byte{5}))
		return nil
	}))
	assert.Equal(t, uint64(100), seenBlock)
	v, _ := rt.State().GetStorage(vault, slot)
	assert.True(t, v.IsZero())
}

func TestClock(t *testing.T) {
	rt, _ := newRuntime(t)
	assert.Equal(t, uint64(105), rt.Mine(5))
	assert.NoError(t, rt.SetBlock(310))
	assert.Equal(t, uint64(310), rt.BlockNumber())
	assert.Error(t, rt.SetBlock(309))

	r1, err := rt.Execute(alice, "join", write(1))
	require.NoError(t, err)
	r2, err := rt.Execute(alice, "join", write(1))
	require.NoError(t, err)
	assert.NotEqual(t, r1.TxID, r2.TxID)
}

func TestCommitPersists(t *testing.T) {
	rt, db := newRuntime(t)
	_, err := rt.Execute(alice, "join", write(7))
	require.NoError(t, err)
	require.NoError(t, rt.Commit())

	v, err := state.New(db).GetStorage(vault, slot)
	require.NoError(t, err)
	assert.Equal(t, farm.BytesToBytes32([]byte{7}), v)
}
