// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"encoding/binary"

	"github.com/paiswap/paifarm/farm"
)

// NewID derives a transaction id from the block, origin and a per block sequence.
func NewID(blockNumber uint64, origin farm.Address, seq uint64) farm.Bytes32 {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], blockNumber)
	binary.BigEndian.PutUint64(b[8:], seq)
	return farm.Blake2b(b[:8], origin.Bytes(), b[8:])
}
