// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/tx"
	"github.com/paiswap/paifarm/xenv"
)

var logger = log.WithContext("pkg", "runtime")

// Operation is the body of a transaction.
type Operation func(env *xenv.Environment) error

// Runtime executes transactions one at a time against a state.
// It owns the block clock, which only moves forward.
type Runtime struct {
	mu        sync.Mutex
	state     *state.State
	block     uint64
	seq       uint64
	receipts  tx.Receipts
	onReceipt []func(*tx.Receipt)
}

// New creates a runtime positioned at the given block.
func New(st *state.State, block uint64) *Runtime {
	metricBlockNumber().Set(int64(block))
	return &Runtime{state: st, block: block}
}

// State returns the underlying state. Callers must not use it concurrently with Execute.
func (rt *Runtime) State() *state.State {
	return rt.state
}

// BlockNumber returns the current block.
func (rt *Runtime) BlockNumber() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.block
}

// SetBlock moves the clock to n. Moving backwards is rejected.
func (rt *Runtime) SetBlock(n uint64) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if n < rt.block {
		return errors.Errorf("block %d is behind current block %d", n, rt.block)
	}
	if n != rt.block {
		rt.block = n
		rt.seq = 0
	}
	metricBlockNumber().Set(int64(n))
	return nil
}

// Mine advances the clock by n blocks.
func (rt *Runtime) Mine(n uint64) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.block += n
	if n > 0 {
		rt.seq = 0
	}
	metricBlockNumber().Set(int64(rt.block))
	return rt.block
}

// OnReceipt registers a callback invoked for every receipt, after the transaction settled.
func (rt *Runtime) OnReceipt(fn func(*tx.Receipt)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.onReceipt = append(rt.onReceipt, fn)
}

// Execute runs op as a transaction sent by origin.
// A revert discards every effect of op and is returned along with a receipt marked reverted.
// Any other error also discards the effects, and no receipt is produced.
func (rt *Runtime) Execute(origin farm.Address, method string, op Operation) (*tx.Receipt, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	started := time.Now()
	txCtx := &xenv.TransactionContext{
		ID:     tx.NewID(rt.block, origin, rt.seq),
		Origin: origin,
	}
	rt.seq++
	env := xenv.New(rt.state, &xenv.BlockContext{Number: rt.block}, txCtx)

	checkpoint := rt.state.NewCheckpoint()
	err := op(env)
	metricTxDuration().Observe(time.Since(started).Microseconds())

	receipt := &tx.Receipt{
		TxID:        txCtx.ID,
		Origin:      origin,
		BlockNumber: rt.block,
		Method:      method,
	}
	switch {
	case err == nil:
		receipt.Events = env.Events()
		metricTxCount().AddWithLabel(1, map[string]string{"result": "committed"})
		logger.Debug("transaction committed", "method", method, "origin", origin, "block", rt.block, "events", len(receipt.Events))
	case reverts.IsRevertErr(err):
		rt.state.RevertTo(checkpoint)
		receipt.Reverted = true
		receipt.RevertReason = err.Error()
		metricTxCount().AddWithLabel(1, map[string]string{"result": "reverted"})
		logger.Debug("transaction reverted", "method", method, "origin", origin, "block", rt.block, "reason", err)
	default:
		rt.state.RevertTo(checkpoint)
		metricTxCount().AddWithLabel(1, map[string]string{"result": "failed"})
		logger.Warn("transaction failed", "method", method, "origin", origin, "block", rt.block, "err", err)
		return nil, errors.WithMessage(err, method)
	}

	rt.receipts = append(rt.receipts, receipt)
	for _, fn := range rt.onReceipt {
		fn(receipt)
	}
	return receipt, err
}

// Call runs op against the current state and discards all its effects.
func (rt *Runtime) Call(origin farm.Address, op Operation) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	env := xenv.New(rt.state, &xenv.BlockContext{Number: rt.block}, &xenv.TransactionContext{Origin: origin})
	checkpoint := rt.state.NewCheckpoint()
	defer rt.state.RevertTo(checkpoint)
	return op(env)
}

// Receipts returns the receipts produced so far.
func (rt *Runtime) Receipts() tx.Receipts {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append(tx.Receipts(nil), rt.receipts...)
}

// Commit flushes the state changes of all executed transactions to the store.
func (rt *Runtime) Commit() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := rt.state.Commit(); err != nil {
		return errors.Wrap(err, "commit state")
	}
	return nil
}
