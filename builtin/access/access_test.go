// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/lvldb"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

var (
	contract = farm.BytesToAddress([]byte("contract"))
	alice    = farm.BytesToAddress([]byte("alice"))
	bob      = farm.BytesToAddress([]byte("bob"))
)

func setup(t *testing.T) (*solidity.Context, *xenv.Environment) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)
	env := xenv.New(st, &xenv.BlockContext{Number: 1}, &xenv.TransactionContext{Origin: alice})
	return solidity.NewContext(contract, st), env
}

func TestOwnable(t *testing.T) {
	ctx, env := setup(t)
	o := NewOwnable(ctx)

	require.NoError(t, o.Init(env, alice))
	owner, err := o.Owner()
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	assert.NoError(t, o.OnlyOwner(alice))
	assert.True(t, reverts.Is(o.OnlyOwner(bob), reverts.Unauthorized))

	assert.True(t, reverts.Is(o.TransferOwnership(env, farm.Address{}), reverts.InvalidParameter))
	require.NoError(t, o.TransferOwnership(env, bob))
	owner, _ = o.Owner()
	assert.Equal(t, bob, owner)

	// alice is no longer allowed
	assert.True(t, reverts.Is(o.TransferOwnership(env, alice), reverts.Unauthorized))
	assert.Len(t, env.Events(), 2)
}

func TestGuard(t *testing.T) {
	ctx, _ := setup(t)
	g := NewGuard(ctx)

	calls := 0
	err := g.Do(func() error {
		calls++
		return g.Do(func() error {
			calls++
			return nil
		})
	})
	assert.True(t, reverts.Is(err, reverts.Reentrant))
	assert.Equal(t, 1, calls)

	// the lock is released afterwards
	assert.NoError(t, g.Do(func() error { return nil }))
}
