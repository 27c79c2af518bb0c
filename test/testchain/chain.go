// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain runs contract operations against an in-memory runtime in tests.
package testchain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/lvldb"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/tx"
	"github.com/paiswap/paifarm/xenv"
)

// Chain is a runtime over a fresh in-memory store.
type Chain struct {
	t  *testing.T
	rt *runtime.Runtime
}

// New creates a chain positioned at block.
func New(t *testing.T, block uint64) *Chain {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Chain{t: t, rt: runtime.New(state.New(db), block)}
}

func (c *Chain) T() *testing.T             { return c.t }
func (c *Chain) Runtime() *runtime.Runtime { return c.rt }
func (c *Chain) State() *state.State       { return c.rt.State() }
func (c *Chain) Block() uint64             { return c.rt.BlockNumber() }

// Mine advances the clock by n blocks.
func (c *Chain) Mine(n uint64) uint64 {
	return c.rt.Mine(n)
}

// AdvanceTo sets the clock to block n.
func (c *Chain) AdvanceTo(n uint64) {
	require.NoError(c.t, c.rt.SetBlock(n))
}

// Exec runs op as origin and returns its error, which may be a revert.
func (c *Chain) Exec(origin farm.Address, op runtime.Operation) error {
	_, err := c.rt.Execute(origin, "test", op)
	return err
}

// MustExec runs op as origin and fails the test on any error.
func (c *Chain) MustExec(origin farm.Address, op runtime.Operation) *tx.Receipt {
	receipt, err := c.rt.Execute(origin, "test", op)
	require.NoError(c.t, err)
	return receipt
}

// Env returns an environment at the current block, for read-only helpers in tests.
func (c *Chain) Env(origin farm.Address) *xenv.Environment {
	return xenv.New(c.rt.State(), &xenv.BlockContext{Number: c.rt.BlockNumber()}, &xenv.TransactionContext{Origin: origin})
}
