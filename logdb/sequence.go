// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import "math"

// sequence orders rows by block number, then by index within the block.
type sequence int64

// noSequence precedes every valid sequence.
const noSequence sequence = -1

// MaxBlockNumber is the highest block number the index can hold.
const MaxBlockNumber = math.MaxUint32

func newSequence(blockNum uint32, index uint32) sequence {
	if (index & math.MaxInt32) != index {
		panic("index too large")
	}
	return (sequence(blockNum) << 31) | sequence(index)
}

func (s sequence) BlockNumber() uint32 {
	return uint32(s >> 31)
}

func (s sequence) Index() uint32 {
	return uint32(s & math.MaxInt32)
}

// next returns the sequence of the row following s in block blockNum.
func (s sequence) next(blockNum uint32) sequence {
	if s == noSequence || s.BlockNumber() != blockNum {
		return newSequence(blockNum, 0)
	}
	return newSequence(blockNum, s.Index()+1)
}
