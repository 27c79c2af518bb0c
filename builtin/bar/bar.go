// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bar implements the staked derivative vault. Depositors of the native token
// receive shares whose exchange rate grows as the vault receives more tokens.
package bar

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "bar"

var (
	logger = log.WithContext("pkg", "bar")

	ABI        = abi.MustNew(gen.MustABI("bar"))
	eventEnter = ABI.MustEventByName("Enter")
	eventLeave = ABI.MustEventByName("Leave")

	slotUnderlying = solidity.Slot("bar.underlying")

	shareMetadata = token.Metadata{Name: "PaiBar", Symbol: "xPAI", Decimals: 18}
)

// Bar is its own share token.
type Bar struct {
	*token.Token
	addr       farm.Address
	state      *state.State
	underlying *solidity.Address
	guard      *access.Guard
}

func New(addr farm.Address, state *state.State) *Bar {
	ctx := solidity.NewContext(addr, state)
	return &Bar{
		Token:      token.New(addr, state),
		addr:       addr,
		state:      state,
		underlying: solidity.NewAddress(ctx, slotUnderlying),
		guard:      access.NewGuard(ctx),
	}
}

// Deploy creates a bar at addr holding underlying.
func Deploy(env *xenv.Environment, addr, underlying farm.Address) (*Bar, error) {
	if underlying.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "bar: zero underlying token")
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	b := New(addr, env.State())
	if err := b.Token.Init(env, shareMetadata, addr); err != nil {
		return nil, err
	}
	b.underlying.Set(underlying)
	return b, nil
}

func (b *Bar) Address() farm.Address { return b.addr }

// Underlying returns the token the bar holds.
func (b *Bar) Underlying() (farm.Address, error) { return b.underlying.Get() }

func (b *Bar) underlyingToken() (*token.Token, error) {
	addr, err := b.underlying.Get()
	if err != nil {
		return nil, err
	}
	return token.New(addr, b.state), nil
}

// Reserve returns the underlying balance held by the bar.
func (b *Bar) Reserve() (*uint256.Int, error) {
	u, err := b.underlyingToken()
	if err != nil {
		return nil, err
	}
	return u.BalanceOf(b.addr)
}

// UnderlyingOf converts shares into underlying tokens at the current rate.
func (b *Bar) UnderlyingOf(shares *uint256.Int) (*uint256.Int, error) {
	supply, err := b.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply.IsZero() {
		return new(uint256.Int), nil
	}
	reserve, err := b.Reserve()
	if err != nil {
		return nil, err
	}
	out := new(uint256.Int).Mul(shares, reserve)
	return out.Div(out, supply), nil
}

// Enter locks amount underlying from the caller and mints the matching shares.
func (b *Bar) Enter(env *xenv.Environment, amount *uint256.Int) (shares *uint256.Int, err error) {
	if amount.IsZero() {
		return nil, reverts.New(reverts.ZeroAmount, "bar: enter 0")
	}
	err = b.guard.Do(func() error {
		u, err := b.underlyingToken()
		if err != nil {
			return err
		}
		reserve, err := u.BalanceOf(b.addr)
		if err != nil {
			return err
		}
		supply, err := b.TotalSupply()
		if err != nil {
			return err
		}
		if supply.IsZero() || reserve.IsZero() {
			shares = new(uint256.Int).Set(amount)
		} else {
			shares = new(uint256.Int).Mul(amount, supply)
			shares.Div(shares, reserve)
		}
		self := env.As(b.addr)
		if err := b.Token.Mint(self, env.Caller(), shares); err != nil {
			return err
		}
		if err := u.TransferFrom(self, env.Caller(), b.addr, amount); err != nil {
			return err
		}
		logger.Debug("enter", "user", env.Caller(), "amount", amount, "shares", shares)
		return env.Log(eventEnter, b.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller())}, amount, shares)
	})
	return
}

// Leave burns shares of the caller and pays out their part of the underlying.
func (b *Bar) Leave(env *xenv.Environment, shares *uint256.Int) (amount *uint256.Int, err error) {
	if shares.IsZero() {
		return nil, reverts.New(reverts.ZeroAmount, "bar: leave 0")
	}
	err = b.guard.Do(func() error {
		if amount, err = b.UnderlyingOf(shares); err != nil {
			return err
		}
		if err := b.Token.Burn(env, shares); err != nil {
			return err
		}
		u, err := b.underlyingToken()
		if err != nil {
			return err
		}
		if err := u.Transfer(env.As(b.addr), env.Caller(), amount); err != nil {
			return err
		}
		logger.Debug("leave", "user", env.Caller(), "shares", shares, "amount", amount)
		return env.Log(eventLeave, b.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller())}, shares, amount)
	})
	return
}
