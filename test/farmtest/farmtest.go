// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package farmtest deploys the token and pair fixtures shared by contract tests.
package farmtest

import (
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

// MaxAllowance is an approval that is never spent.
var MaxAllowance = new(uint256.Int).SetAllOne()

// Token deploys an 18 decimals token named symbol at NameToAddress(symbol), owned by owner.
func Token(chain *testchain.Chain, owner farm.Address, symbol string) *token.Token {
	var tok *token.Token
	chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		tok, err = token.Deploy(env, farm.NameToAddress(symbol), token.Metadata{Name: symbol, Symbol: symbol, Decimals: 18})
		return
	})
	return tok
}

// Mint mints amount of tok to each of the holders.
func Mint(chain *testchain.Chain, owner farm.Address, tok *token.Token, amount *uint256.Int, holders ...farm.Address) {
	chain.MustExec(owner, func(env *xenv.Environment) error {
		for _, h := range holders {
			if err := tok.Mint(env, h, amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// Transfer moves amount of tok from one holder to another.
func Transfer(chain *testchain.Chain, tok *token.Token, from, to farm.Address, amount *uint256.Int) {
	chain.MustExec(from, func(env *xenv.Environment) error {
		return tok.Transfer(env, to, amount)
	})
}

// Approve grants spender an unlimited allowance of tok from holder.
func Approve(chain *testchain.Chain, tok *token.Token, holder, spender farm.Address) {
	chain.MustExec(holder, func(env *xenv.Environment) error {
		return tok.Approve(env, spender, MaxAllowance)
	})
}

// Balance reads the balance of tok held by addr.
func Balance(chain *testchain.Chain, tok *token.Token, addr farm.Address) *uint256.Int {
	b, err := tok.BalanceOf(addr)
	require.NoError(chain.T(), err)
	return b
}

// Factory deploys a pair factory named name.
func Factory(chain *testchain.Chain, owner farm.Address, name string) *pair.Factory {
	var f *pair.Factory
	chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		f, err = pair.DeployFactory(env, farm.NameToAddress(name))
		return
	})
	return f
}

// Pair creates the pair of a and b at factory and seeds it from provider, who
// must hold amountA of a and amountB of b. The provider receives the shares.
func Pair(chain *testchain.Chain, owner farm.Address, factory *pair.Factory, a, b *token.Token, provider farm.Address, amountA, amountB *uint256.Int) *pair.Pair {
	var p *pair.Pair
	chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		p, err = factory.CreatePair(env, a.Address(), b.Address())
		return
	})
	if amountA == nil || amountA.IsZero() {
		return p
	}
	chain.MustExec(provider, func(env *xenv.Environment) error {
		if err := a.Transfer(env, p.Address(), amountA); err != nil {
			return err
		}
		if err := b.Transfer(env, p.Address(), amountB); err != nil {
			return err
		}
		_, err := p.Mint(env, provider)
		return err
	})
	return p
}
