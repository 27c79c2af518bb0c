// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package farm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	const hexAddr = "7567d83b7b8d80addcb281a71d54fc7b3364ffed"

	plain, err := ParseAddress(hexAddr)
	require.NoError(t, err)
	prefixed, err := ParseAddress("0X" + hexAddr)
	require.NoError(t, err)
	assert.Equal(t, *plain, *prefixed)
	assert.Equal(t, "0x"+hexAddr, plain.String())

	tests := []struct {
		name string
		in   string
	}{
		{"short", "0x1234"},
		{"bad prefix", "1x" + hexAddr},
		{"not hex", "0x" + hexAddr[:38] + "zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.in)
			assert.Error(t, err)
		})
	}

	assert.Panics(t, func() { MustParseAddress("0x") })
}

func TestAddressJSON(t *testing.T) {
	addr := MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	expected := `"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"`

	byValue, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.Equal(t, expected, string(byValue))

	byPtr, err := json.Marshal(&addr)
	require.NoError(t, err)
	assert.Equal(t, expected, string(byPtr))

	var nilAddr *Address
	null, err := nilAddr.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(null))

	var decoded Address
	require.NoError(t, json.Unmarshal(byValue, &decoded))
	assert.Equal(t, addr, decoded)
	assert.Error(t, json.Unmarshal([]byte(`"0x12"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`12`), &decoded))

	keyed, err := json.Marshal(map[Address]int{addr: 1})
	require.NoError(t, err)
	assert.Equal(t, `{`+expected+`:1}`, string(keyed))
}

func TestBytesToAddress(t *testing.T) {
	addr := BytesToAddress([]byte{1, 2})
	assert.Equal(t, "0x0000000000000000000000000000000000000102", addr.String())
	assert.False(t, addr.IsZero())
	assert.True(t, Address{}.IsZero())
	assert.Len(t, addr.Bytes(), AddressLength)

	long := make([]byte, AddressLength+4)
	long[0] = 0xff
	long[len(long)-1] = 0x01
	assert.Equal(t, BytesToAddress([]byte{1}), BytesToAddress(long))
}

func TestNameToAddress(t *testing.T) {
	assert.Equal(t, NameToAddress("alice"), NameToAddress("alice"))
	assert.NotEqual(t, NameToAddress("alice"), NameToAddress("bob"))
	assert.Equal(t, Keccak256([]byte("alice")).Bytes()[12:], NameToAddress("alice").Bytes())

	deployer := NameToAddress("deployer")
	assert.NotEqual(t, CreateAddress(deployer, []byte("a")), CreateAddress(deployer, []byte("b")))
	assert.Equal(t, CreateAddress(deployer, []byte("a")), CreateAddress(deployer, []byte("a")))
}
