// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/rand"
	mathrand "math/rand/v2"

	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/farm"
)

func RandBytes32() (b farm.Bytes32) {
	rand.Read(b[:])
	return
}

func RandAddress() (addr farm.Address) {
	rand.Read(addr[:])
	return
}

// RandUint256 returns a value below max.
func RandUint256(max uint64) *uint256.Int {
	return uint256.NewInt(RandUint64N(max))
}

func RandUint64N(n uint64) uint64 {
	return mathrand.Uint64N(n) //#nosec G404
}
