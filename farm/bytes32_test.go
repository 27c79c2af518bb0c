// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes32JSON(t *testing.T) {
	originalHex := `"0x00000000000000000000000000000000000000000000000000006d6173746572"`

	var value Bytes32
	require.NoError(t, value.UnmarshalJSON([]byte(originalHex)))
	require.NoError(t, json.Unmarshal([]byte(originalHex), &value))

	direct, err := value.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, originalHex, string(direct))

	byPtr, err := json.Marshal(&value)
	require.NoError(t, err)
	assert.Equal(t, originalHex, string(byPtr))

	topics, err := json.Marshal([]*Bytes32{&value, nil})
	require.NoError(t, err)
	assert.Equal(t, "["+originalHex+",null]", string(topics))

	assert.Error(t, json.Unmarshal([]byte(`"0x6d"`), &value))
}

func TestParseBytes32(t *testing.T) {
	s := "0x" + strings.Repeat("ab", 32)
	b, err := ParseBytes32(s)
	require.NoError(t, err)
	assert.Equal(t, s, b.String())

	noPrefix, err := ParseBytes32(s[2:])
	require.NoError(t, err)
	assert.Equal(t, b, noPrefix)

	_, err = ParseBytes32("zz" + s[2:])
	assert.EqualError(t, err, "bytes32: missing 0x prefix")
	_, err = ParseBytes32(s[:10])
	assert.EqualError(t, err, "bytes32: want 64 hex digits, got 10 chars")
	assert.Panics(t, func() { MustParseBytes32("0x") })

	assert.Equal(t, "0xabababab…abababab", b.AbbrevString())
}

func TestBytesToBytes32(t *testing.T) {
	b := BytesToBytes32([]byte{0x6d})
	assert.Equal(t, byte(0x6d), b[31])
	assert.False(t, b.IsZero())
	assert.True(t, Bytes32{}.IsZero())
	assert.Len(t, b.Bytes(), 32)
}
