// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pair

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

var (
	owner    = farm.BytesToAddress([]byte("owner"))
	alice    = farm.BytesToAddress([]byte("alice"))
	migrator = farm.BytesToAddress([]byte("migrator"))
	factAddr = farm.NameToAddress("factory")
)

type fixture struct {
	chain   *testchain.Chain
	factory *Factory
	tokenA  *token.Token
	tokenB  *token.Token
	pair    *Pair
}

func setup(t *testing.T) *fixture {
	f := &fixture{chain: testchain.New(t, 1)}
	f.chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		if f.tokenA, err = token.Deploy(env, farm.NameToAddress("tokenA"), token.Metadata{Symbol: "A", Decimals: 18}); err != nil {
			return
		}
		if f.tokenB, err = token.Deploy(env, farm.NameToAddress("tokenB"), token.Metadata{Symbol: "B", Decimals: 18}); err != nil {
			return
		}
		for _, tok := range []*token.Token{f.tokenA, f.tokenB} {
			if err = tok.Mint(env, alice, uint256.NewInt(1_000_000_000)); err != nil {
				return
			}
		}
		if f.factory, err = DeployFactory(env, factAddr); err != nil {
			return
		}
		f.pair, err = f.factory.CreatePair(env, f.tokenA.Address(), f.tokenB.Address())
		return
	})
	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		max := new(uint256.Int).SetAllOne()
		if err := f.tokenA.Approve(env, f.pair.Address(), max); err != nil {
			return err
		}
		return f.tokenB.Approve(env, f.pair.Address(), max)
	})
	return f
}

// amounts returns the pair's token0 and token1 amounts for a and b given in tokenA and tokenB terms.
func (f *fixture) amounts(a, b uint64) (*uint256.Int, *uint256.Int) {
	t0, _ := f.pair.Token0()
	if t0 == f.tokenA.Address() {
		return uint256.NewInt(a), uint256.NewInt(b)
	}
	return uint256.NewInt(b), uint256.NewInt(a)
}

func TestCreatePair(t *testing.T) {
	f := setup(t)

	addr, err := f.factory.GetPair(f.tokenB.Address(), f.tokenA.Address())
	require.NoError(t, err)
	assert.Equal(t, f.pair.Address(), addr)
	assert.Equal(t, PairFor(factAddr, f.tokenA.Address(), f.tokenB.Address()), addr)

	n, _ := f.factory.AllPairsLength()
	assert.Equal(t, uint64(1), n)
	first, _ := f.factory.AllPairs(0)
	assert.Equal(t, addr, first)

	factory, _ := f.pair.Factory()
	assert.Equal(t, factAddr, factory)
	md, _ := f.pair.Metadata()
	assert.Equal(t, "PLP", md.Symbol)

	err = f.chain.Exec(owner, func(env *xenv.Environment) error {
		_, err := f.factory.CreatePair(env, f.tokenA.Address(), f.tokenB.Address())
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))

	err = f.chain.Exec(owner, func(env *xenv.Environment) error {
		_, err := f.factory.CreatePair(env, f.tokenA.Address(), f.tokenA.Address())
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))
}

func TestMintAndBurn(t *testing.T) {
	f := setup(t)

	var liquidity *uint256.Int
	f.chain.MustExec(alice, func(env *xenv.Environment) (err error) {
		a0, a1 := f.amounts(1_000_000, 4_000_000)
		liquidity, err = f.pair.AddLiquidity(env, a0, a1, alice)
		return
	})
	// sqrt(1e6 * 4e6) minus the locked minimum
	assert.Equal(t, uint64(2_000_000-farm.MinimumLiquidity), liquidity.Uint64())
	locked, _ := f.pair.BalanceOf(farm.BurnAddress)
	assert.Equal(t, uint64(farm.MinimumLiquidity), locked.Uint64())

	r0, r1, err := f.pair.GetReserves()
	require.NoError(t, err)
	e0, e1 := f.amounts(1_000_000, 4_000_000)
	assert.Equal(t, e0, r0)
	assert.Equal(t, e1, r1)

	// the smaller ratio wins
	f.chain.MustExec(alice, func(env *xenv.Environment) (err error) {
		a0, a1 := f.amounts(500_000, 4_000_000)
		liquidity, err = f.pair.AddLiquidity(env, a0, a1, alice)
		return
	})
	assert.Equal(t, uint64(1_000_000), liquidity.Uint64())

	supply, _ := f.pair.TotalSupply()
	assert.Equal(t, uint64(3_000_000), supply.Uint64())

	var out0, out1 *uint256.Int
	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		max := new(uint256.Int).SetAllOne()
		if err := f.pair.Approve(env, f.pair.Address(), max); err != nil {
			return err
		}
		var err error
		out0, out1, err = f.pair.RemoveLiquidity(env, uint256.NewInt(1_500_000), alice)
		return err
	})
	b0, b1 := f.amounts(1_500_000, 8_000_000)
	assert.Equal(t, new(uint256.Int).Div(new(uint256.Int).Mul(b0, uint256.NewInt(1_500_000)), supply), out0)
	assert.Equal(t, new(uint256.Int).Div(new(uint256.Int).Mul(b1, uint256.NewInt(1_500_000)), supply), out1)

	err = f.chain.Exec(alice, func(env *xenv.Environment) error {
		_, _, err := f.pair.Burn(env, alice)
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))
}

func TestFirstMintTooSmall(t *testing.T) {
	f := setup(t)
	err := f.chain.Exec(alice, func(env *xenv.Environment) error {
		_, err := f.pair.AddLiquidity(env, uint256.NewInt(10), uint256.NewInt(10), alice)
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))
}

func TestMigrateMint(t *testing.T) {
	f := setup(t)

	err := f.chain.Exec(alice, func(env *xenv.Environment) error {
		return f.factory.SetMigrator(env, migrator)
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.factory.SetMigrator(env, migrator)
	})

	// ordinary first mint is blocked while a migrator is set
	err = f.chain.Exec(alice, func(env *xenv.Environment) error {
		_, err := f.pair.AddLiquidity(env, uint256.NewInt(1_000_000), uint256.NewInt(1_000_000), alice)
		return err
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		if err := f.tokenA.Transfer(env, f.pair.Address(), uint256.NewInt(5000)); err != nil {
			return err
		}
		return f.tokenB.Transfer(env, f.pair.Address(), uint256.NewInt(5000))
	})

	err = f.chain.Exec(alice, func(env *xenv.Environment) error {
		return f.pair.MigrateMint(env, alice, uint256.NewInt(4242))
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	f.chain.MustExec(migrator, func(env *xenv.Environment) error {
		return f.pair.MigrateMint(env, alice, uint256.NewInt(4242))
	})
	bal, _ := f.pair.BalanceOf(alice)
	assert.Equal(t, uint64(4242), bal.Uint64())

	err = f.chain.Exec(migrator, func(env *xenv.Environment) error {
		return f.pair.MigrateMint(env, alice, uint256.NewInt(1))
	})
	assert.True(t, reverts.Is(err, reverts.AlreadyMigrated))
}

func TestSwap(t *testing.T) {
	f := setup(t)
	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		_, err := f.pair.AddLiquidity(env, uint256.NewInt(1_000_000), uint256.NewInt(1_000_000), alice)
		return err
	})
	t0, _ := f.pair.Token0()
	in := token.New(t0, f.chain.State())

	// 1000 in at 0.3% fee buys at most 996 out
	err := f.chain.Exec(alice, func(env *xenv.Environment) error {
		if err := in.Transfer(env, f.pair.Address(), uint256.NewInt(1000)); err != nil {
			return err
		}
		return f.pair.Swap(env, new(uint256.Int), uint256.NewInt(997), alice)
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))

	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		if err := in.Transfer(env, f.pair.Address(), uint256.NewInt(1000)); err != nil {
			return err
		}
		return f.pair.Swap(env, new(uint256.Int), uint256.NewInt(996), alice)
	})
	r0, r1, _ := f.pair.GetReserves()
	assert.Equal(t, uint64(1_001_000), r0.Uint64())
	assert.Equal(t, uint64(999_004), r1.Uint64())

	err = f.chain.Exec(alice, func(env *xenv.Environment) error {
		return f.pair.Swap(env, new(uint256.Int), new(uint256.Int), alice)
	})
	assert.True(t, reverts.Is(err, reverts.ZeroAmount))
}

func TestSync(t *testing.T) {
	f := setup(t)
	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		if err := f.tokenA.Transfer(env, f.pair.Address(), uint256.NewInt(7)); err != nil {
			return err
		}
		return f.pair.Sync(env)
	})
	r0, r1, _ := f.pair.GetReserves()
	assert.Equal(t, uint64(7), new(uint256.Int).Add(r0, r1).Uint64())
}
