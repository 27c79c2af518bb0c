// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/farm"
)

func TestEnvironment(t *testing.T) {
	alice := farm.BytesToAddress([]byte("alice"))
	master := farm.BytesToAddress([]byte("master"))

	env := New(nil, &BlockContext{Number: 310}, &TransactionContext{Origin: alice})
	assert.Equal(t, uint64(310), env.BlockNumber())
	assert.Equal(t, alice, env.Caller())

	nested := env.As(master)
	assert.Equal(t, master, nested.Caller())
	assert.Equal(t, alice, nested.TransactionContext().Origin)
	assert.Equal(t, alice, env.Caller(), "outer env keeps its caller")

	transfer := abi.MustNew(gen.MustABI("token")).MustEventByName("Transfer")
	require.NoError(t, nested.Log(transfer, master, []farm.Bytes32{AddressTopic(master), AddressTopic(alice)}, big.NewInt(5)))

	// events emitted in a nested call are visible to the outer call
	events := env.Events()
	require.Len(t, events, 1)
	assert.Equal(t, master, events[0].Address)
	assert.Equal(t, transfer.ID(), events[0].Topics[0])
	assert.Equal(t, alice, farm.BytesToAddress(events[0].Topics[2].Bytes()))

	assert.Error(t, env.Log(transfer, master, nil, common.Address{}))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, farm.BytesToBytes32([]byte{1, 2}), Uint64Topic(258))
	addr := farm.BytesToAddress([]byte("bob"))
	assert.Equal(t, addr, farm.BytesToAddress(AddressTopic(addr).Bytes()))
}
