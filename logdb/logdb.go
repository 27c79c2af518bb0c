// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb indexes the receipts and events produced by the runtime in sqlite.
package logdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/tx"
)

var logger = log.WithContext("pkg", "logdb")

const (
	insertReceiptQuery = "INSERT OR REPLACE INTO receipt(seq, txID, origin, method, reverted, reason, eventCount) VALUES(?,?,?,?,?,?,?)"
	insertEventQuery   = "INSERT OR REPLACE INTO event(seq, txID, txOrigin, address, topic0, topic1, topic2, topic3, topic4, data) VALUES(?,?,?,?,?,?,?,?,?,?)"
	maxReceiptSeqQuery = "SELECT COALESCE(MAX(seq), -1) FROM receipt"
	maxEventSeqQuery   = "SELECT COALESCE(MAX(seq), -1) FROM event"
)

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
	prepared      *preparedSet
}

// New create or open log db at given path.
func New(path string) (*LogDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return open(path, db)
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	db, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		return nil, err
	}
	// every connection would see its own database
	db.SetMaxOpenConns(1)
	return open(":memory:", db)
}

func open(path string, db *sql.DB) (logDB *LogDB, err error) {
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(receiptTableSchema + eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create tables")
	}
	// prepared up front, a writer holds the only connection of a memory db
	prepared := newPreparedSet(db)
	for _, query := range []string{insertReceiptQuery, insertEventQuery} {
		if _, err := prepared.stmt(query); err != nil {
			prepared.closeAll()
			return nil, errors.Wrap(err, "prepare")
		}
	}
	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "sqlite", driverVer)
	return &LogDB{
		path:          path,
		db:            db,
		driverVersion: driverVer,
		prepared:      prepared,
	}, nil
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.prepared.closeAll()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// NewestBlock returns the highest block with a written receipt.
func (db *LogDB) NewestBlock() (uint64, bool, error) {
	seq, err := db.maxSequence(db.db, maxReceiptSeqQuery)
	if err != nil {
		return 0, false, err
	}
	if seq == noSequence {
		return 0, false, nil
	}
	return uint64(seq.BlockNumber()), true, nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (db *LogDB) maxSequence(q queryer, query string) (sequence, error) {
	var seq int64
	if err := q.QueryRow(query).Scan(&seq); err != nil {
		return noSequence, err
	}
	return sequence(seq), nil
}

func rangeCondition(stmt string, args []any, r *Range) (string, []any) {
	if r == nil {
		return stmt, args
	}
	from := newSequence(uint32(min(r.From, MaxBlockNumber)), 0)
	args = append(args, from)
	stmt += " AND seq >= ?"
	if r.To >= r.From {
		to := newSequence(uint32(min(r.To, MaxBlockNumber)), math.MaxInt32)
		args = append(args, to)
		stmt += " AND seq <= ?"
	}
	return stmt, args
}

func pageCondition(stmt string, args []any, order Order, options *Options) (string, []any) {
	if order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, options.Offset, options.Limit)
	}
	return stmt, args
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	const query = "SELECT seq, txID, txOrigin, address, topic0, topic1, topic2, topic3, topic4, data FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query)
	}
	metricsHandleEventsFilter(filter)

	var args []any
	stmt, args := rangeCondition(query+" WHERE 1", args, filter.Range)
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Address != nil {
			args = append(args, criteria.Address.Bytes())
			stmt += " AND address = ?"
		}
		for j, topic := range criteria.Topics {
			if topic != nil {
				args = append(args, topic.Bytes())
				stmt += fmt.Sprintf(" AND topic%v = ?", j)
			}
		}
		stmt += ")"
		if i == len(filter.CriteriaSet)-1 {
			stmt += ")"
		}
	}
	stmt, args = pageCondition(stmt, args, filter.Order, filter.Options)
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) FilterReceipts(ctx context.Context, filter *ReceiptFilter) ([]*Receipt, error) {
	const query = "SELECT seq, txID, origin, method, reverted, reason, eventCount FROM receipt"
	if filter == nil {
		return db.queryReceipts(ctx, query)
	}
	metricsHandleCommon(filter.Options, filter.Order, "receipt")

	var args []any
	stmt, args := rangeCondition(query+" WHERE 1", args, filter.Range)
	if filter.Origin != nil {
		args = append(args, filter.Origin.Bytes())
		stmt += " AND origin = ?"
	}
	if filter.Reverted != nil {
		args = append(args, *filter.Reverted)
		stmt += " AND reverted = ?"
	}
	stmt, args = pageCondition(stmt, args, filter.Order, filter.Options)
	return db.queryReceipts(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq      sequence
			txID     []byte
			txOrigin []byte
			address  []byte
			topics   [5][]byte
			data     []byte
		)
		if err := rows.Scan(
			&seq,
			&txID,
			&txOrigin,
			&address,
			&topics[0],
			&topics[1],
			&topics[2],
			&topics[3],
			&topics[4],
			&data,
		); err != nil {
			return nil, err
		}
		event := &Event{
			BlockNumber: uint64(seq.BlockNumber()),
			Index:       seq.Index(),
			TxID:        farm.BytesToBytes32(txID),
			TxOrigin:    farm.BytesToAddress(txOrigin),
			Address:     farm.BytesToAddress(address),
			Data:        data,
		}
		for i, topic := range topics {
			if len(topic) > 0 {
				h := farm.BytesToBytes32(topic)
				event.Topics[i] = &h
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (db *LogDB) queryReceipts(ctx context.Context, query string, args ...any) ([]*Receipt, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query receipts")
	}
	defer rows.Close()

	var receipts []*Receipt
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq    sequence
			txID   []byte
			origin []byte
			r      Receipt
		)
		if err := rows.Scan(&seq, &txID, &origin, &r.Method, &r.Reverted, &r.RevertReason, &r.EventCount); err != nil {
			return nil, err
		}
		r.BlockNumber = uint64(seq.BlockNumber())
		r.Index = seq.Index()
		r.TxID = farm.BytesToBytes32(txID)
		r.Origin = farm.BytesToAddress(origin)
		receipts = append(receipts, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func topicValue(topic *farm.Bytes32) []byte {
	if topic == nil {
		return nil
	}
	return topic.Bytes()
}

// NewWriter creates a log writer. Writes are buffered in a sql transaction until Commit.
// A db supports one writer at a time.
func (db *LogDB) NewWriter() *Writer {
	return &Writer{db: db, lastReceipt: noSequence, lastEvent: noSequence}
}

// Writer appends receipts in execution order.
type Writer struct {
	db          *LogDB
	tx          *sql.Tx
	lastReceipt sequence
	lastEvent   sequence
	uncommitted int
}

func (w *Writer) begin() error {
	if w.tx != nil {
		return nil
	}
	tx, err := w.db.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	if w.lastReceipt, err = w.db.maxSequence(tx, maxReceiptSeqQuery); err != nil {
		tx.Rollback()
		return err
	}
	if w.lastEvent, err = w.db.maxSequence(tx, maxEventSeqQuery); err != nil {
		tx.Rollback()
		return err
	}
	w.tx = tx
	return nil
}

func (w *Writer) exec(query string, args ...any) error {
	stmt, err := w.db.prepared.stmt(query)
	if err != nil {
		return err
	}
	_, err = w.tx.Stmt(stmt).Exec(args...)
	return err
}

// Write writes the receipt and its events.
func (w *Writer) Write(receipt *tx.Receipt) error {
	if receipt.BlockNumber > MaxBlockNumber {
		return errors.Errorf("block %d out of range", receipt.BlockNumber)
	}
	if err := w.begin(); err != nil {
		return err
	}
	blockNum := uint32(receipt.BlockNumber)
	if last := w.lastReceipt; last != noSequence && last.BlockNumber() > blockNum {
		return errors.Errorf("receipt of block %d written after block %d", blockNum, last.BlockNumber())
	}

	seq := w.lastReceipt.next(blockNum)
	if err := w.exec(insertReceiptQuery,
		seq,
		receipt.TxID.Bytes(),
		receipt.Origin.Bytes(),
		receipt.Method,
		receipt.Reverted,
		receipt.RevertReason,
		len(receipt.Events),
	); err != nil {
		return errors.Wrap(err, "insert receipt")
	}
	w.lastReceipt = seq
	w.uncommitted++

	for _, txEvent := range receipt.Events {
		seq := w.lastEvent.next(blockNum)
		ev := newEvent(receipt, seq, txEvent)
		if err := w.exec(insertEventQuery,
			seq,
			ev.TxID.Bytes(),
			ev.TxOrigin.Bytes(),
			ev.Address.Bytes(),
			topicValue(ev.Topics[0]),
			topicValue(ev.Topics[1]),
			topicValue(ev.Topics[2]),
			topicValue(ev.Topics[3]),
			topicValue(ev.Topics[4]),
			ev.Data,
		); err != nil {
			return errors.Wrap(err, "insert event")
		}
		w.lastEvent = seq
		w.uncommitted++
	}
	return nil
}

// Truncate deletes everything written for blocks from blockNum on, included.
func (w *Writer) Truncate(blockNum uint64) error {
	if err := w.begin(); err != nil {
		return err
	}
	from := newSequence(uint32(min(blockNum, MaxBlockNumber)), 0)
	if _, err := w.tx.Exec("DELETE FROM receipt WHERE seq >= ?", from); err != nil {
		return errors.Wrap(err, "truncate receipts")
	}
	if _, err := w.tx.Exec("DELETE FROM event WHERE seq >= ?", from); err != nil {
		return errors.Wrap(err, "truncate events")
	}
	var err error
	if w.lastReceipt, err = w.db.maxSequence(w.tx, maxReceiptSeqQuery); err != nil {
		return err
	}
	if w.lastEvent, err = w.db.maxSequence(w.tx, maxEventSeqQuery); err != nil {
		return err
	}
	w.uncommitted++
	return nil
}

// Commit commits accumulated logs.
func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	if err := w.tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	metricWrittenCount().AddWithLabel(int64(w.uncommitted), map[string]string{"type": "row"})
	w.tx, w.uncommitted = nil, 0
	return nil
}

// Rollback rollbacks all uncommitted logs.
func (w *Writer) Rollback() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx, w.uncommitted = nil, 0
	return err
}

// UncommittedCount returns the count of uncommitted rows.
func (w *Writer) UncommittedCount() int {
	return w.uncommitted
}
