// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events serves the logs indexed from the executed transactions.
package events

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/api/restutil"
	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/logdb"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/xenv"
)

var logger = log.WithContext("pkg", "events")

type Events struct {
	rt    *runtime.Runtime
	db    *logdb.LogDB
	limit uint64
}

func New(rt *runtime.Runtime, db *logdb.LogDB, logsLimit uint64) *Events {
	return &Events{
		rt,
		db,
		logsLimit,
	}
}

// decodeAll decodes the events against the contracts that emitted them.
// Events of unknown contracts are left undecoded.
func (e *Events) decodeAll(events []*logdb.Event, fes []*FilteredEvent) error {
	return e.rt.Call(farm.Address{}, func(env *xenv.Environment) error {
		for i, ev := range events {
			if ev.Topics[0] == nil {
				continue
			}
			abiEvent, ok, err := builtin.EventOf(env.State(), ev.Address, *ev.Topics[0])
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if fes[i].Decoded, err = decode(abiEvent, ev.Data); err != nil {
				logger.Debug("failed to decode event", "address", ev.Address, "name", abiEvent.Name(), "err", err)
			}
		}
		return nil
	})
}

func (e *Events) filter(ctx context.Context, ef *EventFilter) ([]*FilteredEvent, error) {
	events, err := e.db.FilterEvents(ctx, convertEventFilter(ef))
	if err != nil {
		return nil, err
	}
	fes := make([]*FilteredEvent, len(events))
	for i, ev := range events {
		fes[i] = convertEvent(ev)
	}
	if err := e.decodeAll(events, fes); err != nil {
		return nil, err
	}
	return fes, nil
}

// checkPage validates the common paging fields, and returns the options to query with.
func (e *Events) checkPage(options *Options, r *Range) (*Options, error) {
	if options != nil && options.Limit > e.limit {
		return nil, restutil.Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}
	if options != nil && options.Offset > math.MaxInt64 {
		return nil, restutil.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if r != nil && r.From != nil && r.To != nil && *r.From > *r.To {
		return nil, restutil.BadRequest(errors.New("range.to must be greater than or equal to range.from"))
	}
	if options == nil {
		// one more than the limit, to detect an oversized result
		return &Options{Offset: 0, Limit: e.limit + 1}, nil
	}
	return options, nil
}

func checkOrder(order logdb.Order) error {
	switch order {
	case "", logdb.ASC, logdb.DESC:
		return nil
	}
	return restutil.BadRequest(fmt.Errorf("order: unsupported value %q", order))
}

func (e *Events) handleFilterEvents(w http.ResponseWriter, req *http.Request) error {
	var filter EventFilter
	if err := restutil.ParseJSON(req.Body, &filter); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	options, err := e.checkPage(filter.Options, filter.Range)
	if err != nil {
		return err
	}
	if err := checkOrder(filter.Order); err != nil {
		return err
	}
	for i, criteria := range filter.CriteriaSet {
		if criteria == nil {
			return restutil.BadRequest(fmt.Errorf("criteriaSet[%d]: null not allowed", i))
		}
	}
	filter.Options = options

	fes, err := e.filter(req.Context(), &filter)
	if err != nil {
		return err
	}
	if len(fes) > int(e.limit) {
		return restutil.Forbidden(fmt.Errorf("the number of filtered logs exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	return restutil.WriteJSON(w, fes)
}

func (e *Events) handleFilterReceipts(w http.ResponseWriter, req *http.Request) error {
	var filter ReceiptFilter
	if err := restutil.ParseJSON(req.Body, &filter); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	options, err := e.checkPage(filter.Options, filter.Range)
	if err != nil {
		return err
	}
	if err := checkOrder(filter.Order); err != nil {
		return err
	}

	receipts, err := e.db.FilterReceipts(req.Context(), &logdb.ReceiptFilter{
		Origin:   filter.Origin,
		Reverted: filter.Reverted,
		Range:    convertRange(filter.Range),
		Options:  convertOptions(options),
		Order:    filter.Order,
	})
	if err != nil {
		return err
	}
	if len(receipts) > int(e.limit) {
		return restutil.Forbidden(fmt.Errorf("the number of filtered receipts exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	frs := make([]*FilteredReceipt, len(receipts))
	for i, r := range receipts {
		frs[i] = convertReceipt(r)
	}
	return restutil.WriteJSON(w, frs)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/event").
		Methods(http.MethodPost).
		Name("POST /logs/event").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilterEvents))
	sub.Path("/receipt").
		Methods(http.MethodPost).
		Name("POST /logs/receipt").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilterReceipts))
}
