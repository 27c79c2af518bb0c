// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/paiswap/paifarm/farm"
)

// Event represents a contract event log.
type Event struct {
	// address of the contract generated the event
	Address farm.Address
	// list of topics provided by the contract.
	Topics []farm.Bytes32
	// supplied by the contract, usually ABI-encoded
	Data []byte
}

// Events slice of event logs.
type Events []*Event

// Filter returns the events emitted by addr whose first topic is id.
func (es Events) Filter(addr farm.Address, id farm.Bytes32) Events {
	var out Events
	for _, e := range es {
		if e.Address == addr && len(e.Topics) > 0 && e.Topics[0] == id {
			out = append(out, e)
		}
	}
	return out
}
