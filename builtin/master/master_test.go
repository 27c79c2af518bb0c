// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package master

import (
	"math/rand/v2"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/farmtest"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

var (
	owner  = farm.BytesToAddress([]byte("owner"))
	alice  = farm.BytesToAddress([]byte("alice"))
	bob    = farm.BytesToAddress([]byte("bob"))
	carol  = farm.BytesToAddress([]byte("carol"))
	dev    = farm.BytesToAddress([]byte("dev"))
	feeTo  = farm.BytesToAddress([]byte("fee"))
	master = farm.NameToAddress("master")
)

type fixture struct {
	chain  *testchain.Chain
	pai    *token.Token
	lp     *token.Token
	lp2    *token.Token
	master *Master
}

// setup deploys a master paying 50 per block from its balance, with the default
// bonus window from start, and gives alice, bob and carol 1000 of two LP tokens.
func setup(t *testing.T, start uint64, mutate ...func(*Config)) *fixture {
	f := &fixture{chain: testchain.New(t, 1)}
	f.pai = farmtest.Token(f.chain, owner, "PAI")
	f.lp = farmtest.Token(f.chain, owner, "LP")
	f.lp2 = farmtest.Token(f.chain, owner, "LP2")
	users := []farm.Address{alice, bob, carol}
	farmtest.Mint(f.chain, owner, f.lp, uint256.NewInt(1000), users...)
	farmtest.Mint(f.chain, owner, f.lp2, uint256.NewInt(1000), users...)

	cfg := Config{
		RewardToken:    f.pai.Address(),
		RewardPerBlock: uint256.NewInt(50),
		Schedule:       accumulator.DefaultSchedule(start),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	f.chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		f.master, err = Deploy(env, master, cfg)
		return
	})
	for _, u := range users {
		farmtest.Approve(f.chain, f.lp, u, master)
		farmtest.Approve(f.chain, f.lp2, u, master)
	}
	return f
}

func (f *fixture) add(allocPoint uint64, lp farm.Address, withUpdate bool) uint64 {
	var pid uint64
	f.chain.MustExec(owner, func(env *xenv.Environment) (err error) {
		pid, err = f.master.Add(env, allocPoint, lp, withUpdate)
		return
	})
	return pid
}

func (f *fixture) depositAt(block uint64, user farm.Address, pid, amount uint64) {
	f.chain.AdvanceTo(block)
	f.chain.MustExec(user, func(env *xenv.Environment) error {
		return f.master.Deposit(env, pid, uint256.NewInt(amount))
	})
}

func (f *fixture) pending(pid uint64, user farm.Address) uint64 {
	p, err := f.master.PendingOf(pid, user, f.chain.Block())
	require.NoError(f.chain.T(), err)
	return p.Uint64()
}

func (f *fixture) balance(tok *token.Token, addr farm.Address) uint64 {
	return farmtest.Balance(f.chain, tok, addr).Uint64()
}

func TestDeploy(t *testing.T) {
	f := setup(t, 0)

	rt, _ := f.master.RewardToken()
	assert.Equal(t, f.pai.Address(), rt)
	o, _ := f.master.Owner()
	assert.Equal(t, owner, o)
	sched, _ := f.master.Schedule()
	assert.Equal(t, accumulator.Schedule{Start: 0, BonusEnd: 64000, End: 128000}, sched)

	for _, tt := range []struct{ from, to, want uint64 }{
		{0, 64000, 128000},
		{32000, 70000, 70000},
		{32000, 130000, 128000},
		{64000, 128000, 64000},
		{64000, 130000, 64000},
		{128000, 130000, 0},
	} {
		m, err := f.master.Multiplier(tt.from, tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m)
	}

	err := f.chain.Exec(owner, func(env *xenv.Environment) error {
		_, err := Deploy(env, farm.NameToAddress("bad"), Config{RewardToken: f.pai.Address(), Schedule: accumulator.Schedule{Start: 5, BonusEnd: 1, End: 9}})
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))
}

func TestPoolAdmin(t *testing.T) {
	f := setup(t, 0)

	err := f.chain.Exec(bob, func(env *xenv.Environment) error {
		_, err := f.master.Add(env, 1, f.lp.Address(), false)
		return err
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))

	receipt := f.chain.MustExec(owner, func(env *xenv.Environment) error {
		_, err := f.master.Add(env, 1, f.lp.Address(), false)
		return err
	})
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, eventPoolAdded.ID(), receipt.Events[0].Topics[0])
	assert.Equal(t, xenv.AddressTopic(f.lp.Address()), receipt.Events[0].Topics[2])

	err = f.chain.Exec(owner, func(env *xenv.Environment) error {
		_, err := f.master.Add(env, 1, f.lp.Address(), false)
		return err
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter), "lp token already added")

	n, _ := f.master.PoolLength()
	assert.Equal(t, uint64(1), n)

	err = f.chain.Exec(bob, func(env *xenv.Environment) error {
		return f.master.Set(env, 0, 10, false)
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))
	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.master.Set(env, 0, 10, false)
	})
	info, _ := f.master.PoolInfo(0)
	assert.Equal(t, uint64(10), info.AllocPoint)

	f.add(20, f.lp2.Address(), false)
	total, _ := f.master.TotalAllocPoint()
	assert.Equal(t, uint64(30), total)

	// a staked pool cannot be removed
	f.depositAt(10, alice, 0, 5)
	err = f.chain.Exec(owner, func(env *xenv.Environment) error {
		return f.master.Remove(env, 0)
	})
	assert.True(t, reverts.Is(err, reverts.InvalidParameter))

	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		return f.master.EmergencyWithdraw(env, 0)
	})
	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.master.Remove(env, 0)
	})
	info, _ = f.master.PoolInfo(0)
	assert.Equal(t, f.lp2.Address(), info.LPToken, "the last pool moves into the freed id")
	total, _ = f.master.TotalAllocPoint()
	assert.Equal(t, uint64(20), total)
}

func TestRewardsOnlyAfterStart(t *testing.T) {
	f := setup(t, 100)
	f.add(100, f.lp.Address(), false)

	f.depositAt(10, bob, 0, 100)
	for _, block := range []uint64{90, 95, 100} {
		f.depositAt(block, bob, 0, 0)
		assert.Equal(t, uint64(0), f.balance(f.pai, bob), "block %d", block)
	}

	// the master pays from its balance and has none yet
	f.chain.AdvanceTo(101)
	err := f.chain.Exec(bob, func(env *xenv.Environment) error {
		return f.master.Deposit(env, 0, new(uint256.Int))
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.depositAt(111, bob, 0, 0)
	assert.Equal(t, uint64(1100), f.balance(f.pai, bob))
	f.depositAt(115, bob, 0, 0)
	assert.Equal(t, uint64(1500), f.balance(f.pai, bob))
}

func TestDistributePerStaker(t *testing.T) {
	f := setup(t, 300)
	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.add(100, f.lp.Address(), false)

	f.depositAt(310, alice, 0, 10)
	f.depositAt(314, bob, 0, 20)
	f.depositAt(318, carol, 0, 30)
	// 4*100 + 4*100/3 + 2*100/6
	f.depositAt(320, alice, 0, 10)
	assert.Equal(t, uint64(566), f.balance(f.pai, alice))
	assert.Equal(t, uint64(0), f.balance(f.pai, bob))
	assert.Equal(t, uint64(0), f.balance(f.pai, carol))
	assert.Equal(t, uint64(70), f.balance(f.lp, master))

	info, _ := f.master.PoolInfo(0)
	assert.Equal(t, uint64(70), info.TotalStaked.Uint64())
	pos, _ := f.master.UserInfo(0, alice)
	assert.Equal(t, uint64(20), pos.Amount.Uint64())

	// tokens sent directly do not dilute stakers
	farmtest.Transfer(f.chain, f.lp, carol, master, uint256.NewInt(500))
	f.chain.AdvanceTo(330)
	// about 10*100*20/70, rounded at each settlement
	assert.Equal(t, uint64(286), f.pending(0, alice))
}

func TestAllocationPerPool(t *testing.T) {
	f := setup(t, 400)
	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.add(10, f.lp.Address(), true)

	f.depositAt(410, alice, 0, 10)
	f.chain.AdvanceTo(420)
	f.add(20, f.lp2.Address(), true)
	assert.Equal(t, uint64(1000), f.pending(0, alice))

	f.depositAt(425, bob, 1, 5)
	assert.Equal(t, uint64(1166), f.pending(0, alice))

	f.chain.AdvanceTo(430)
	assert.Equal(t, uint64(1333), f.pending(0, alice))
	assert.Equal(t, uint64(333), f.pending(1, bob))
}

func TestWithdraw(t *testing.T) {
	f := setup(t, 0)
	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.add(1, f.lp.Address(), false)

	f.depositAt(10, alice, 0, 100)
	err := f.chain.Exec(alice, func(env *xenv.Environment) error {
		return f.master.Withdraw(env, 0, uint256.NewInt(101))
	})
	assert.True(t, reverts.Is(err, reverts.InsufficientFunds))

	// a deposit withdrawn in the same block earns nothing
	f.depositAt(20, bob, 0, 50)
	before := f.balance(f.pai, bob)
	f.chain.MustExec(bob, func(env *xenv.Environment) error {
		return f.master.Withdraw(env, 0, uint256.NewInt(50))
	})
	assert.Equal(t, before, f.balance(f.pai, bob))
	assert.Equal(t, uint64(1000), f.balance(f.lp, bob))

	f.chain.AdvanceTo(30)
	f.chain.MustExec(alice, func(env *xenv.Environment) error {
		return f.master.Withdraw(env, 0, uint256.NewInt(100))
	})
	// 20 bonus blocks at 50
	assert.Equal(t, uint64(2000), f.balance(f.pai, alice))
	assert.Equal(t, uint64(1000), f.balance(f.lp, alice))
	pos, _ := f.master.UserInfo(0, alice)
	assert.True(t, pos.Amount.IsZero())
}

func TestEarlyWithdrawFee(t *testing.T) {
	f := setup(t, 0, func(c *Config) { c.LPFeeReceiver = feeTo })
	f.add(1, f.lp.Address(), false)
	withdraw := func(user farm.Address, amount uint64) {
		f.chain.MustExec(user, func(env *xenv.Environment) error {
			return f.master.Withdraw(env, 0, uint256.NewInt(amount))
		})
	}

	f.depositAt(10, bob, 0, 100)
	withdraw(bob, 100)
	assert.Equal(t, uint64(999), f.balance(f.lp, bob))
	assert.Equal(t, uint64(1), f.balance(f.lp, feeTo))

	f.depositAt(20, bob, 0, 100)
	f.chain.AdvanceTo(20 + farm.MinWithdrawInterval)
	withdraw(bob, 100)
	assert.Equal(t, uint64(999), f.balance(f.lp, bob), "no fee after the interval")

	f.depositAt(130, bob, 0, 100)
	f.chain.MustExec(bob, func(env *xenv.Environment) error {
		return f.master.EmergencyWithdraw(env, 0)
	})
	assert.Equal(t, uint64(999), f.balance(f.lp, bob), "emergency exits pay no fee")
	assert.Equal(t, uint64(1), f.balance(f.lp, feeTo))
	assert.Equal(t, uint64(0), f.pending(0, bob))

	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.master.SetLPFeeReceiver(env, farm.Address{})
	})
	f.depositAt(200, bob, 0, 100)
	withdraw(bob, 100)
	assert.Equal(t, uint64(999), f.balance(f.lp, bob), "fee disabled")
}

func TestRewardCappedAtReserve(t *testing.T) {
	f := setup(t, 0)
	farmtest.Mint(f.chain, owner, f.pai, uint256.NewInt(30), master)
	farmtest.Mint(f.chain, owner, f.pai, uint256.NewInt(500), bob)
	farmtest.Approve(f.chain, f.pai, bob, master)
	f.add(1, f.lp.Address(), false)
	f.add(1, f.pai.Address(), false)

	f.depositAt(10, alice, 0, 10)
	f.depositAt(10, bob, 1, 500)
	f.chain.AdvanceTo(20)
	assert.Equal(t, uint64(500), f.pending(0, alice))

	var paid *uint256.Int
	f.chain.MustExec(alice, func(env *xenv.Environment) (err error) {
		paid, err = f.master.Settle(env, 0)
		return
	})
	assert.Equal(t, uint64(30), paid.Uint64())
	assert.Equal(t, uint64(30), f.balance(f.pai, alice))

	// the staked reward token is not paid out as reward
	f.chain.MustExec(bob, func(env *xenv.Environment) error {
		return f.master.Withdraw(env, 1, uint256.NewInt(500))
	})
	assert.Equal(t, uint64(500), f.balance(f.pai, bob))
	assert.Equal(t, uint64(0), f.balance(f.pai, master))
}

func TestRandomHarvestsNeverFail(t *testing.T) {
	f := setup(t, 0, func(c *Config) {
		c.MintRewards = true
		c.RewardPerBlock = uint256.NewInt(7)
		c.Schedule = accumulator.Schedule{Start: 0, BonusEnd: 0, End: 128000}
	})
	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.pai.TransferOwnership(env, master)
	})
	f.add(1, f.lp.Address(), false)

	users := []farm.Address{alice, bob, carol}
	rnd := rand.New(rand.NewPCG(1, 1))
	for range 300 {
		if n := rnd.Uint64N(3); n > 0 {
			f.chain.Mine(n)
		}
		user := users[rnd.IntN(len(users))]
		pos, err := f.master.UserInfo(0, user)
		require.NoError(t, err)
		staked := pos.Amount.Uint64()
		free := f.balance(f.lp, user)
		f.chain.MustExec(user, func(env *xenv.Environment) error {
			if rnd.IntN(2) == 0 && free > 0 {
				return f.master.Deposit(env, 0, uint256.NewInt(rnd.Uint64N(free)+1))
			}
			return f.master.Withdraw(env, 0, uint256.NewInt(rnd.Uint64N(staked+1)))
		})
	}

	supply, err := f.pai.TotalSupply()
	require.NoError(t, err)
	held := f.balance(f.pai, master)
	for _, u := range users {
		held += f.balance(f.pai, u)
	}
	assert.Equal(t, supply.Uint64(), held)
}

func TestMintRewards(t *testing.T) {
	f := setup(t, 0, func(c *Config) {
		c.MintRewards = true
		c.DevAddr = dev
		c.RewardPerBlock = uint256.NewInt(1000)
		c.Schedule = accumulator.Schedule{Start: 0, BonusEnd: 0, End: 128000}
	})
	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.pai.TransferOwnership(env, master)
	})
	f.add(100, f.lp.Address(), false)

	f.depositAt(9, alice, 0, 1)
	f.chain.AdvanceTo(10)
	assert.Equal(t, uint64(1000), f.pending(0, alice))

	f.depositAt(11, alice, 0, 0)
	assert.Equal(t, uint64(2000), f.balance(f.pai, alice))
	assert.Equal(t, uint64(200), f.balance(f.pai, dev))
	supply, _ := f.pai.TotalSupply()
	assert.Equal(t, uint64(2200), supply.Uint64())
}

func TestSetRewardPerBlock(t *testing.T) {
	f := setup(t, 0)
	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.add(1, f.lp.Address(), false)
	f.depositAt(10, alice, 0, 10)

	f.chain.AdvanceTo(20)
	err := f.chain.Exec(alice, func(env *xenv.Environment) error {
		return f.master.SetRewardPerBlock(env, uint256.NewInt(5))
	})
	assert.True(t, reverts.Is(err, reverts.Unauthorized))
	f.chain.MustExec(owner, func(env *xenv.Environment) error {
		return f.master.SetRewardPerBlock(env, uint256.NewInt(5))
	})

	// 10 blocks at the old rate, 10 at the new one, all doubled
	f.chain.AdvanceTo(30)
	assert.Equal(t, uint64(10*100+10*10), f.pending(0, alice))
}

func TestSettler(t *testing.T) {
	f := setup(t, 0)
	farmtest.Mint(f.chain, owner, f.pai, farm.Units(100), master)
	f.add(1, f.lp.Address(), false)
	f.depositAt(10, alice, 0, 10)

	var s accumulator.Settler = f.master
	f.chain.AdvanceTo(15)
	var paid *uint256.Int
	f.chain.MustExec(alice, func(env *xenv.Environment) (err error) {
		paid, err = s.Settle(env, 0)
		return
	})
	assert.Equal(t, uint64(500), paid.Uint64())
	assert.Equal(t, uint64(500), f.balance(f.pai, alice))

	f.chain.AdvanceTo(16)
	f.chain.MustExec(bob, func(env *xenv.Environment) error {
		return s.Update(env, 0)
	})
	info, _ := f.master.PoolInfo(0)
	assert.Equal(t, uint64(16), info.LastRewardBlock)
}
