// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/tx"
)

// indexCommitThreshold bounds the rows held in an open log db transaction.
const indexCommitThreshold = 1000

// indexer copies the receipts of the runtime into the log db.
type indexer struct {
	db       *logdb.LogDB
	receipts chan *tx.Receipt
	done     chan struct{}
}

func newIndexer(db *logdb.LogDB, rt *runtime.Runtime) *indexer {
	ix := &indexer{
		db:       db,
		receipts: make(chan *tx.Receipt, 256),
		done:     make(chan struct{}),
	}
	rt.OnReceipt(ix.push)
	return ix
}

// push runs under the runtime lock, so it must not block once run returned.
func (ix *indexer) push(r *tx.Receipt) {
	select {
	case ix.receipts <- r:
	case <-ix.done:
	}
}

// run writes receipts until ctx is done. Writes are committed whenever the
// queue runs empty, readers of the memory db share its only connection.
func (ix *indexer) run(ctx context.Context) (err error) {
	defer close(ix.done)

	w := ix.db.NewWriter()
	defer func() {
		if err != nil {
			w.Rollback()
		}
	}()
	write := func(r *tx.Receipt) error {
		if err := w.Write(r); err != nil {
			return errors.WithMessagef(err, "index receipt %v", r.TxID)
		}
		if len(ix.receipts) == 0 || w.UncommittedCount() >= indexCommitThreshold {
			return w.Commit()
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// queued receipts were already executed, keep them
			for {
				select {
				case r := <-ix.receipts:
					if err := write(r); err != nil {
						return err
					}
				default:
					if err := w.Commit(); err != nil {
						return err
					}
					if newest, ok, _ := ix.db.NewestBlock(); ok {
						logger.Info("log db synced", "block", newest)
					}
					return nil
				}
			}
		case r := <-ix.receipts:
			if err := write(r); err != nil {
				return err
			}
		}
	}
}
