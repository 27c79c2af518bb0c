// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

var (
	owner = farm.BytesToAddress([]byte("owner"))
	alice = farm.BytesToAddress([]byte("alice"))
	bob   = farm.BytesToAddress([]byte("bob"))
	pai   = farm.NameToAddress("pai")
)

func deploy(t *testing.T) (*testchain.Chain, *Token) {
	chain := testchain.New(t, 1)
	var tok *Token
	chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		tok, err = Deploy(env, pai, Metadata{Name: "PaiSwap", Symbol: "PAI", Decimals: 18})
		return
	})
	return chain, tok
}

func balance(t *testing.T, tok *Token, addr farm.Address) uint64 {
	b, err := tok.BalanceOf(addr)
	require.NoError(t, err)
	return b.Uint64()
}

func TestDeploy(t *testing.T) {
	chain, tok := deploy(t)

	md, err := tok.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "PAI", md.Symbol)
	assert.Equal(t, uint8(18), md.Decimals)

	o, _ := tok.Owner()
	assert.Equal(t, owner, o)

	err = chain.Exec(owner, func(env *xenv.Environment) error {
		_, err := Deploy(env, pai, Metadata{})
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))
}

func TestMintAndTransfer(t *testing.T) {
	chain, tok := deploy(t)

	err := chain.Exec(alice, func(env *xenv.Environment) error {
		return tok.Mint(env, alice, uint256.NewInt(100))
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	receipt := chain.MustExec(owner, func(env *xenv.Environment) error {
		return tok.Mint(env, alice, uint256.NewInt(100))
	})
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, eventTransfer.ID(), receipt.Events[0].Topics[0])

	chain.MustExec(alice, func(env *xenv.Environment) error {
		return tok.Transfer(env, bob, uint256.NewInt(30))
	})
	assert.Equal(t, uint64(70), balance(t, tok, alice))
	assert.Equal(t, uint64(30), balance(t, tok, bob))

	err = chain.Exec(bob, func(env *xenv.Environment) error {
		return tok.Transfer(env, alice, uint256.NewInt(31))
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	err = chain.Exec(bob, func(env *xenv.Environment) error {
		return tok.Transfer(env, farm.Address{}, uint256.NewInt(1))
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))

	supply, _ := tok.TotalSupply()
	assert.Equal(t, uint64(100), supply.Uint64())
}

func TestTransferUpTo(t *testing.T) {
	chain, tok := deploy(t)
	chain.MustExec(owner, func(env *xenv.Environment) error {
		return tok.Mint(env, alice, uint256.NewInt(10))
	})

	sent := func(amount uint64) uint64 {
		var moved *uint256.Int
		chain.MustExec(alice, func(env *xenv.Environment) (err error) {
			moved, err = tok.TransferUpTo(env, bob, uint256.NewInt(amount))
			return
		})
		return moved.Uint64()
	}

	assert.Equal(t, uint64(4), sent(4))
	assert.Equal(t, uint64(6), sent(100), "capped at the balance")
	assert.Equal(t, uint64(0), sent(1), "an empty balance moves nothing")
	assert.Equal(t, uint64(0), balance(t, tok, alice))
	assert.Equal(t, uint64(10), balance(t, tok, bob))
}

func TestAllowance(t *testing.T) {
	chain, tok := deploy(t)
	chain.MustExec(owner, func(env *xenv.Environment) error {
		return tok.Mint(env, alice, uint256.NewInt(100))
	})

	err := chain.Exec(bob, func(env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, uint256.NewInt(10))
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	chain.MustExec(alice, func(env *xenv.Environment) error {
		return tok.Approve(env, bob, uint256.NewInt(40))
	})
	chain.MustExec(bob, func(env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, uint256.NewInt(25))
	})
	allowance, _ := tok.Allowance(alice, bob)
	assert.Equal(t, uint64(15), allowance.Uint64())
	assert.Equal(t, uint64(25), balance(t, tok, bob))

	// unlimited allowance is never spent
	chain.MustExec(alice, func(env *xenv.Environment) error {
		return tok.Approve(env, bob, new(uint256.Int).SetAllOne())
	})
	chain.MustExec(bob, func(env *xenv.Environment) error {
		return tok.TransferFrom(env, alice, bob, uint256.NewInt(5))
	})
	allowance, _ = tok.Allowance(alice, bob)
	assert.True(t, allowance.Eq(new(uint256.Int).SetAllOne()))
}

func TestBurnAndOwnership(t *testing.T) {
	chain, tok := deploy(t)
	chain.MustExec(owner, func(env *xenv.Environment) error {
		if err := tok.Mint(env, alice, uint256.NewInt(50)); err != nil {
			return err
		}
		return tok.TransferOwnership(env, bob)
	})

	chain.MustExec(alice, func(env *xenv.Environment) error {
		return tok.Burn(env, uint256.NewInt(20))
	})
	supply, _ := tok.TotalSupply()
	assert.Equal(t, uint64(30), supply.Uint64())

	err := chain.Exec(alice, func(env *xenv.Environment) error {
		return tok.Burn(env, uint256.NewInt(31))
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	err = chain.Exec(owner, func(env *xenv.Environment) error {
		return tok.Mint(env, owner, uint256.NewInt(1))
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))
	chain.MustExec(bob, func(env *xenv.Environment) error {
		return tok.Mint(env, bob, uint256.NewInt(1))
	})
	assert.Equal(t, uint64(1), balance(t, tok, bob))
}

func TestDeployTicket(t *testing.T) {
	chain := testchain.New(t, 1)
	holder := farm.NameToAddress("vault")

	var ticket *Token
	chain.MustExec(alice, func(env *xenv.Environment) (err error) {
		ticket, err = DeployTicket(env, holder, "LOCK")
		return
	})
	assert.Equal(t, TicketAddress(holder), ticket.Address())
	assert.Equal(t, uint64(1), balance(t, ticket, holder))
	supply, err := ticket.TotalSupply()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), supply.Uint64())

	// only the holder can mint more
	o, err := ticket.Owner()
	require.NoError(t, err)
	assert.Equal(t, holder, o)
	err = chain.Exec(alice, func(env *xenv.Environment) error {
		return ticket.Mint(env, alice, uint256.NewInt(1))
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	// a second ticket for the same holder collides
	err = chain.Exec(alice, func(env *xenv.Environment) error {
		_, err := DeployTicket(env, holder, "LOCK")
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))
}
