// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pair

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

// Kind is recorded as the code of a deployed pair.
const Kind = "pair"

var (
	logger = log.WithContext("pkg", "pair")

	ABI       = abi.MustNew(gen.MustABI("pair"))
	eventMint = ABI.MustEventByName("Mint")
	eventBurn = ABI.MustEventByName("Burn")
	eventSync = ABI.MustEventByName("Sync")

	slotFactory  = solidity.Slot("pair.factory")
	slotToken0   = solidity.Slot("pair.token0")
	slotToken1   = solidity.Slot("pair.token1")
	slotReserve0 = solidity.Slot("pair.reserve0")
	slotReserve1 = solidity.Slot("pair.reserve1")

	minimumLiquidity = uint256.NewInt(farm.MinimumLiquidity)
	lpMetadata       = token.Metadata{Name: "PaiSwap LP Token", Symbol: "PLP", Decimals: 18}
)

// Pair is a constant product market of two tokens. Its liquidity shares are a token at the same address.
type Pair struct {
	*token.Token
	addr     farm.Address
	state    *state.State
	factory  *solidity.Address
	token0   *solidity.Address
	token1   *solidity.Address
	reserve0 *solidity.Uint256
	reserve1 *solidity.Uint256
	guard    *access.Guard
}

// New creates a view of the pair at addr.
func New(addr farm.Address, state *state.State) *Pair {
	ctx := solidity.NewContext(addr, state)
	return &Pair{
		Token:    token.New(addr, state),
		addr:     addr,
		state:    state,
		factory:  solidity.NewAddress(ctx, slotFactory),
		token0:   solidity.NewAddress(ctx, slotToken0),
		token1:   solidity.NewAddress(ctx, slotToken1),
		reserve0: solidity.NewUint256(ctx, slotReserve0),
		reserve1: solidity.NewUint256(ctx, slotReserve1),
		guard:    access.NewGuard(ctx),
	}
}

// Deploy creates the pair of token0 and token1 at addr. The caller becomes its factory.
func Deploy(env *xenv.Environment, addr, token0, token1 farm.Address) (*Pair, error) {
	if token0 == token1 || token0.IsZero() || token1.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "pair: invalid tokens")
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	p := New(addr, env.State())
	// the pair mints its own shares
	if err := p.Token.Init(env, lpMetadata, addr); err != nil {
		return nil, err
	}
	p.factory.Set(env.Caller())
	p.token0.Set(token0)
	p.token1.Set(token1)
	logger.Debug("deployed pair", "address", addr, "token0", token0, "token1", token1)
	return p, nil
}

// Getters

func (p *Pair) Address() farm.Address { return p.addr }

func (p *Pair) Factory() (farm.Address, error) { return p.factory.Get() }
func (p *Pair) Token0() (farm.Address, error)  { return p.token0.Get() }
func (p *Pair) Token1() (farm.Address, error)  { return p.token1.Get() }

// GetReserves returns the reserves as of the last sync.
func (p *Pair) GetReserves() (*uint256.Int, *uint256.Int, error) {
	r0, err := p.reserve0.Get()
	if err != nil {
		return nil, nil, err
	}
	r1, err := p.reserve1.Get()
	if err != nil {
		return nil, nil, err
	}
	return r0, r1, nil
}

func (p *Pair) tokens() (*token.Token, *token.Token, error) {
	t0, err := p.token0.Get()
	if err != nil {
		return nil, nil, err
	}
	t1, err := p.token1.Get()
	if err != nil {
		return nil, nil, err
	}
	return token.New(t0, p.state), token.New(t1, p.state), nil
}

func (p *Pair) balances() (*uint256.Int, *uint256.Int, error) {
	t0, t1, err := p.tokens()
	if err != nil {
		return nil, nil, err
	}
	b0, err := t0.BalanceOf(p.addr)
	if err != nil {
		return nil, nil, err
	}
	b1, err := t1.BalanceOf(p.addr)
	if err != nil {
		return nil, nil, err
	}
	return b0, b1, nil
}

func (p *Pair) update(env *xenv.Environment, b0, b1 *uint256.Int) error {
	p.reserve0.Set(b0)
	p.reserve1.Set(b1)
	return env.Log(eventSync, p.addr, nil, b0.ToBig(), b1.ToBig())
}

// Liquidity

// AddLiquidity pulls both amounts from the caller and mints shares to to.
func (p *Pair) AddLiquidity(env *xenv.Environment, amount0, amount1 *uint256.Int, to farm.Address) (*uint256.Int, error) {
	t0, t1, err := p.tokens()
	if err != nil {
		return nil, err
	}
	self := env.As(p.addr)
	if err := t0.TransferFrom(self, env.Caller(), p.addr, amount0); err != nil {
		return nil, err
	}
	if err := t1.TransferFrom(self, env.Caller(), p.addr, amount1); err != nil {
		return nil, err
	}
	return p.Mint(env, to)
}

// Mint issues shares for the tokens sent to the pair since the last sync.
func (p *Pair) Mint(env *xenv.Environment, to farm.Address) (liquidity *uint256.Int, err error) {
	err = p.guard.Do(func() error {
		r0, r1, err := p.GetReserves()
		if err != nil {
			return err
		}
		b0, b1, err := p.balances()
		if err != nil {
			return err
		}
		amount0 := new(uint256.Int).Sub(b0, r0)
		amount1 := new(uint256.Int).Sub(b1, r1)

		supply, err := p.TotalSupply()
		if err != nil {
			return err
		}
		self := env.As(p.addr)
		if supply.IsZero() {
			migrator, err := p.migrator()
			if err != nil {
				return err
			}
			if !migrator.IsZero() {
				return reverts.New(reverts.Unauthorized, "pair: must not have migrator")
			}
			liquidity = new(uint256.Int).Sqrt(new(uint256.Int).Mul(amount0, amount1))
			if !liquidity.Gt(minimumLiquidity) {
				return reverts.New(reverts.InsufficientFunds, "pair: insufficient liquidity minted")
			}
			liquidity.Sub(liquidity, minimumLiquidity)
			// permanently lock the first shares
			if err := p.Token.Mint(self, farm.BurnAddress, minimumLiquidity); err != nil {
				return err
			}
		} else {
			l0 := new(uint256.Int).Div(new(uint256.Int).Mul(amount0, supply), r0)
			l1 := new(uint256.Int).Div(new(uint256.Int).Mul(amount1, supply), r1)
			liquidity = l0
			if l1.Lt(l0) {
				liquidity = l1
			}
		}
		if liquidity.IsZero() {
			return reverts.New(reverts.InsufficientFunds, "pair: insufficient liquidity minted")
		}
		if err := p.Token.Mint(self, to, liquidity); err != nil {
			return err
		}
		if err := p.update(env, b0, b1); err != nil {
			return err
		}
		return env.Log(eventMint, p.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller())}, amount0.ToBig(), amount1.ToBig())
	})
	return
}

// MigrateMint issues exactly liquidity shares to to for the tokens already sent to an empty pair.
// Only the migrator registered at the factory may call it.
func (p *Pair) MigrateMint(env *xenv.Environment, to farm.Address, liquidity *uint256.Int) error {
	return p.guard.Do(func() error {
		migrator, err := p.migrator()
		if err != nil {
			return err
		}
		if migrator.IsZero() || env.Caller() != migrator {
			return reverts.New(reverts.Unauthorized, "pair: caller is not the migrator")
		}
		supply, err := p.TotalSupply()
		if err != nil {
			return err
		}
		if !supply.IsZero() {
			return reverts.New(reverts.AlreadyMigrated, "pair: pair already has liquidity")
		}
		if liquidity.IsZero() {
			return reverts.New(reverts.ZeroAmount, "pair: bad desired liquidity")
		}
		b0, b1, err := p.balances()
		if err != nil {
			return err
		}
		if err := p.Token.Mint(env.As(p.addr), to, liquidity); err != nil {
			return err
		}
		if err := p.update(env, b0, b1); err != nil {
			return err
		}
		return env.Log(eventMint, p.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller())}, b0.ToBig(), b1.ToBig())
	})
}

// Burn redeems the shares held by the pair itself and sends the underlying tokens to to.
func (p *Pair) Burn(env *xenv.Environment, to farm.Address) (amount0, amount1 *uint256.Int, err error) {
	err = p.guard.Do(func() error {
		t0, t1, err := p.tokens()
		if err != nil {
			return err
		}
		b0, b1, err := p.balances()
		if err != nil {
			return err
		}
		liquidity, err := p.BalanceOf(p.addr)
		if err != nil {
			return err
		}
		supply, err := p.TotalSupply()
		if err != nil {
			return err
		}
		if supply.IsZero() {
			return reverts.New(reverts.InsufficientFunds, "pair: no liquidity")
		}
		amount0 = new(uint256.Int).Div(new(uint256.Int).Mul(liquidity, b0), supply)
		amount1 = new(uint256.Int).Div(new(uint256.Int).Mul(liquidity, b1), supply)
		if amount0.IsZero() || amount1.IsZero() {
			return reverts.New(reverts.InsufficientFunds, "pair: insufficient liquidity burned")
		}

		self := env.As(p.addr)
		if err := p.Token.Burn(self, liquidity); err != nil {
			return err
		}
		if err := t0.Transfer(self, to, amount0); err != nil {
			return err
		}
		if err := t1.Transfer(self, to, amount1); err != nil {
			return err
		}
		b0, b1, err = p.balances()
		if err != nil {
			return err
		}
		if err := p.update(env, b0, b1); err != nil {
			return err
		}
		return env.Log(eventBurn, p.addr, []farm.Bytes32{xenv.AddressTopic(env.Caller()), xenv.AddressTopic(to)}, amount0.ToBig(), amount1.ToBig())
	})
	return
}

// RemoveLiquidity pulls liquidity shares from the caller and burns them to to.
func (p *Pair) RemoveLiquidity(env *xenv.Environment, liquidity *uint256.Int, to farm.Address) (*uint256.Int, *uint256.Int, error) {
	if err := p.TransferFrom(env.As(p.addr), env.Caller(), p.addr, liquidity); err != nil {
		return nil, nil, err
	}
	return p.Burn(env, to)
}

// Swap sends out the requested amounts, requiring the input already sent to keep k after a 0.3% fee.
func (p *Pair) Swap(env *xenv.Environment, amount0Out, amount1Out *uint256.Int, to farm.Address) error {
	return p.guard.Do(func() error {
		if amount0Out.IsZero() && amount1Out.IsZero() {
			return reverts.New(reverts.ZeroAmount, "pair: insufficient output amount")
		}
		r0, r1, err := p.GetReserves()
		if err != nil {
			return err
		}
		if !amount0Out.Lt(r0) || !amount1Out.Lt(r1) {
			return reverts.New(reverts.InsufficientFunds, "pair: insufficient liquidity")
		}
		t0, t1, err := p.tokens()
		if err != nil {
			return err
		}
		if to == t0.Address() || to == t1.Address() {
			return reverts.New(reverts.InvalidParameter, "pair: invalid to")
		}
		self := env.As(p.addr)
		if !amount0Out.IsZero() {
			if err := t0.Transfer(self, to, amount0Out); err != nil {
				return err
			}
		}
		if !amount1Out.IsZero() {
			if err := t1.Transfer(self, to, amount1Out); err != nil {
				return err
			}
		}
		b0, b1, err := p.balances()
		if err != nil {
			return err
		}
		in0 := amountIn(b0, r0, amount0Out)
		in1 := amountIn(b1, r1, amount1Out)
		if in0.IsZero() && in1.IsZero() {
			return reverts.New(reverts.ZeroAmount, "pair: insufficient input amount")
		}
		thousand := uint256.NewInt(1000)
		three := uint256.NewInt(3)
		adj0 := new(uint256.Int).Sub(new(uint256.Int).Mul(b0, thousand), new(uint256.Int).Mul(in0, three))
		adj1 := new(uint256.Int).Sub(new(uint256.Int).Mul(b1, thousand), new(uint256.Int).Mul(in1, three))
		k := new(uint256.Int).Mul(new(uint256.Int).Mul(r0, r1), uint256.NewInt(1_000_000))
		if new(uint256.Int).Mul(adj0, adj1).Lt(k) {
			return reverts.New(reverts.InvalidParameter, "pair: K")
		}
		return p.update(env, b0, b1)
	})
}

// Sync forces reserves to match balances.
func (p *Pair) Sync(env *xenv.Environment) error {
	return p.guard.Do(func() error {
		b0, b1, err := p.balances()
		if err != nil {
			return err
		}
		return p.update(env, b0, b1)
	})
}

// amountIn is balance - (reserve - out), floored at zero.
func amountIn(balance, reserve, out *uint256.Int) *uint256.Int {
	rest := new(uint256.Int).Sub(reserve, out)
	if !balance.Gt(rest) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(balance, rest)
}

func (p *Pair) migrator() (farm.Address, error) {
	factory, err := p.factory.Get()
	if err != nil {
		return farm.Address{}, err
	}
	return NewFactory(factory, p.state).Migrator()
}
