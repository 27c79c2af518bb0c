// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/logdb"
)

type TopicSet struct {
	Topic0 *farm.Bytes32 `json:"topic0"`
	Topic1 *farm.Bytes32 `json:"topic1"`
	Topic2 *farm.Bytes32 `json:"topic2"`
	Topic3 *farm.Bytes32 `json:"topic3"`
	Topic4 *farm.Bytes32 `json:"topic4"`
}

type EventCriteria struct {
	Address *farm.Address `json:"address"`
	TopicSet
}

type Range struct {
	From *uint64 `json:"from,omitempty"`
	To   *uint64 `json:"to,omitempty"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *Range           `json:"range"`
	Options     *Options         `json:"options"`
	Order       logdb.Order      `json:"order"`
}

type ReceiptFilter struct {
	Origin   *farm.Address `json:"origin"`
	Reverted *bool         `json:"reverted"`
	Range    *Range        `json:"range"`
	Options  *Options      `json:"options"`
	Order    logdb.Order   `json:"order"`
}

type LogMeta struct {
	BlockNumber uint64       `json:"blockNumber"`
	Index       uint32       `json:"index"`
	TxID        farm.Bytes32 `json:"txID"`
	TxOrigin    farm.Address `json:"txOrigin"`
}

// Decoded is the event data unpacked with the ABI of the emitting contract.
type Decoded struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type FilteredEvent struct {
	Address farm.Address    `json:"address"`
	Topics  []*farm.Bytes32 `json:"topics"`
	Data    string          `json:"data"`
	Decoded *Decoded        `json:"decoded,omitempty"`
	Meta    LogMeta         `json:"meta"`
}

type FilteredReceipt struct {
	BlockNumber  uint64       `json:"blockNumber"`
	Index        uint32       `json:"index"`
	TxID         farm.Bytes32 `json:"txID"`
	Origin       farm.Address `json:"origin"`
	Method       string       `json:"method"`
	Reverted     bool         `json:"reverted"`
	RevertReason string       `json:"revertReason,omitempty"`
	EventCount   uint32       `json:"eventCount"`
}

func convertRange(r *Range) *logdb.Range {
	if r == nil {
		return nil
	}
	out := &logdb.Range{From: 0, To: logdb.MaxBlockNumber}
	if r.From != nil {
		out.From = *r.From
	}
	if r.To != nil {
		out.To = *r.To
	}
	return out
}

func convertOptions(o *Options) *logdb.Options {
	if o == nil {
		return nil
	}
	return &logdb.Options{Offset: o.Offset, Limit: o.Limit}
}

func convertEventFilter(ef *EventFilter) *logdb.EventFilter {
	f := &logdb.EventFilter{
		Range:   convertRange(ef.Range),
		Options: convertOptions(ef.Options),
		Order:   ef.Order,
	}
	for _, c := range ef.CriteriaSet {
		f.CriteriaSet = append(f.CriteriaSet, &logdb.EventCriteria{
			Address: c.Address,
			Topics:  [5]*farm.Bytes32{c.Topic0, c.Topic1, c.Topic2, c.Topic3, c.Topic4},
		})
	}
	return f
}

func convertEvent(e *logdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		Address: e.Address,
		Data:    hexutil.Encode(e.Data),
		Meta: LogMeta{
			BlockNumber: e.BlockNumber,
			Index:       e.Index,
			TxID:        e.TxID,
			TxOrigin:    e.TxOrigin,
		},
	}
	fe.Topics = make([]*farm.Bytes32, 0)
	for _, topic := range e.Topics {
		if topic != nil {
			fe.Topics = append(fe.Topics, topic)
		}
	}
	return fe
}

func convertReceipt(r *logdb.Receipt) *FilteredReceipt {
	return &FilteredReceipt{
		BlockNumber:  r.BlockNumber,
		Index:        r.Index,
		TxID:         r.TxID,
		Origin:       r.Origin,
		Method:       r.Method,
		Reverted:     r.Reverted,
		RevertReason: r.RevertReason,
		EventCount:   r.EventCount,
	}
}

func decode(ev *abi.Event, data []byte) (*Decoded, error) {
	values, err := ev.Values(data)
	if err != nil {
		return nil, err
	}
	d := &Decoded{Name: ev.Name(), Args: make(map[string]any, len(values))}
	for i, name := range ev.DataNames() {
		if i >= len(values) {
			break
		}
		// amounts exceed the precision of json numbers
		if n, ok := values[i].(*big.Int); ok {
			d.Args[name] = n.String()
			continue
		}
		d.Args[name] = values[i]
	}
	return d, nil
}
