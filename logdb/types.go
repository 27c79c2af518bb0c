// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/tx"
)

// Event represents tx.Event that can be stored in db.
type Event struct {
	BlockNumber uint64
	Index       uint32
	TxID        farm.Bytes32
	TxOrigin    farm.Address
	Address     farm.Address // always a contract address
	Topics      [5]*farm.Bytes32
	Data        []byte
}

// newEvent converts tx.Event to Event.
func newEvent(receipt *tx.Receipt, seq sequence, txEvent *tx.Event) *Event {
	ev := &Event{
		BlockNumber: uint64(seq.BlockNumber()),
		Index:       seq.Index(),
		TxID:        receipt.TxID,
		TxOrigin:    receipt.Origin,
		Address:     txEvent.Address,
		Data:        txEvent.Data,
	}
	for i := 0; i < len(txEvent.Topics) && i < len(ev.Topics); i++ {
		topic := txEvent.Topics[i]
		ev.Topics[i] = &topic
	}
	return ev
}

// Receipt is the stored outcome of a transaction, without its events.
type Receipt struct {
	BlockNumber  uint64
	Index        uint32
	TxID         farm.Bytes32
	Origin       farm.Address
	Method       string
	Reverted     bool
	RevertReason string
	EventCount   uint32
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

type EventCriteria struct {
	Address *farm.Address // always a contract address
	Topics  [5]*farm.Bytes32
}

// EventFilter selects events matching any of the criteria.
type EventFilter struct {
	CriteriaSet []*EventCriteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}

type ReceiptFilter struct {
	Origin *farm.Address
	// Reverted keeps only reverted receipts when true and only committed ones when false.
	Reverted *bool
	Range    *Range
	Options  *Options
	Order    Order // default asc
}
