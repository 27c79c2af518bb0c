// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Bytes32 is a storage word. Contract slots, slot keys and event topics are
// all Bytes32 values.
type Bytes32 [32]byte

var (
	_ json.Marshaler   = (*Bytes32)(nil)
	_ json.Unmarshaler = (*Bytes32)(nil)
)

// String returns the 0x-prefixed hex form.
func (b Bytes32) String() string {
	return "0x" + hex.EncodeToString(b[:])
}

// AbbrevString keeps the first and last four bytes, for log lines.
func (b Bytes32) AbbrevString() string {
	return fmt.Sprintf("0x%x…%x", b[:4], b[28:])
}

func (b Bytes32) Bytes() []byte {
	return b[:]
}

// IsZero reports whether the word is unset. Storage treats a zero word as absent.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

func (b *Bytes32) MarshalJSON() ([]byte, error) {
	if b == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(b.String())
}

func (b *Bytes32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBytes32(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// ParseBytes32 decodes 64 hex digits, with or without a 0x prefix.
func ParseBytes32(s string) (Bytes32, error) {
	switch len(s) {
	case 64:
	case 66:
		if !strings.EqualFold(s[:2], "0x") {
			return Bytes32{}, errors.New("bytes32: missing 0x prefix")
		}
		s = s[2:]
	default:
		return Bytes32{}, fmt.Errorf("bytes32: want 64 hex digits, got %d chars", len(s))
	}

	var b Bytes32
	if _, err := hex.Decode(b[:], []byte(s)); err != nil {
		return Bytes32{}, err
	}
	return b, nil
}

// MustParseBytes32 is ParseBytes32 for constants; it panics on bad input.
func MustParseBytes32(s string) Bytes32 {
	b, err := ParseBytes32(s)
	if err != nil {
		panic(err)
	}
	return b
}

// BytesToBytes32 right-aligns b in a word. Longer input keeps its last 32 bytes.
func BytesToBytes32(b []byte) Bytes32 {
	return Bytes32(common.BytesToHash(b))
}
