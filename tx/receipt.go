// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/paiswap/paifarm/farm"
)

// Receipt represents the results of a transaction.
type Receipt struct {
	// id of the executed transaction
	TxID farm.Bytes32
	// account that sent the transaction
	Origin farm.Address
	// block the transaction runs in
	BlockNumber uint64
	// name of the invoked operation
	Method string
	// true when the call aborted and its effects were discarded
	Reverted bool
	// why the call reverted, empty on success
	RevertReason string
	// events produced, always empty when reverted
	Events Events
}

// Receipts slice of receipts.
type Receipts []*Receipt

// RootHash computes the digest of the rlp encoded receipts.
func (rs Receipts) RootHash() (farm.Bytes32, error) {
	data, err := rlp.EncodeToBytes(rs)
	if err != nil {
		return farm.Bytes32{}, err
	}
	return farm.Blake2b(data), nil
}
