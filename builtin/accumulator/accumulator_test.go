// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accumulator

import (
	"math/rand/v2"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplier(t *testing.T) {
	s := Schedule{Start: 0, BonusEnd: 64000, End: 128000}

	tests := []struct {
		from, to uint64
		want     uint64
	}{
		{0, 64000, 128000},
		{32000, 70000, 70000},
		{32000, 130000, 128000},
		{64000, 128000, 64000},
		{64000, 130000, 64000},
		{128000, 130000, 0},
		{70000, 60000, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Multiplier(tt.from, tt.to), "multiplier(%d, %d)", tt.from, tt.to)
	}

	late := DefaultSchedule(100)
	assert.Equal(t, uint64(0), late.Multiplier(50, 100))
	assert.Equal(t, uint64(20), late.Multiplier(50, 110))
	assert.True(t, late.Valid())
	assert.False(t, Schedule{Start: 10, BonusEnd: 5, End: 20}.Valid())
}

func TestUpdate(t *testing.T) {
	e := &Emission{RewardPerBlock: uint256.NewInt(50), TotalAllocPoint: 100, Schedule: DefaultSchedule(0)}
	pool := &Pool{AllocPoint: 100, LastRewardBlock: 10}

	// nothing staked: the interval is forfeited
	reward := e.Update(pool, new(uint256.Int), 20)
	assert.True(t, reward.IsZero())
	assert.Equal(t, uint64(20), pool.LastRewardBlock)
	assert.True(t, pool.AccRewardPerShare.IsZero())

	reward = e.Update(pool, uint256.NewInt(10), 30)
	assert.Equal(t, uint64(1000), reward.Uint64())
	assert.Equal(t, new(uint256.Int).Mul(uint256.NewInt(100), Scale), pool.AccRewardPerShare)

	// same block is a no-op
	reward = e.Update(pool, uint256.NewInt(10), 30)
	assert.True(t, reward.IsZero())

	projected := e.Project(pool, uint256.NewInt(10), 31)
	assert.Equal(t, new(uint256.Int).Mul(uint256.NewInt(110), Scale), projected)
	assert.Equal(t, uint64(30), pool.LastRewardBlock, "project must not mutate")
}

func TestPending(t *testing.T) {
	acc := new(uint256.Int).Mul(uint256.NewInt(3), Scale)
	debt := Debt(uint256.NewInt(10), acc)
	assert.Equal(t, uint64(30), debt.Uint64())

	pending, err := Pending(uint256.NewInt(10), new(uint256.Int).Mul(uint256.NewInt(5), Scale), debt)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), pending.Uint64())

	_, err = Pending(uint256.NewInt(1), acc, debt)
	assert.ErrorIs(t, err, ErrBrokenInvariant)
}

// The sum of the payouts of all stakers never exceeds the emission, and the
// shortfall is bounded by one base unit per staker per settlement.
// Rounding lets a settlement run at most one unit ahead of the exact share, so
// payouts are capped at what is left of the emission, the way the farms pay.
func TestConservation(t *testing.T) {
	e := &Emission{RewardPerBlock: uint256.NewInt(7919), TotalAllocPoint: 3, Schedule: DefaultSchedule(0)}
	pool := &Pool{AllocPoint: 3}

	type position struct{ amount, debt *uint256.Int }
	users := make([]position, 5)
	for i := range users {
		users[i] = position{new(uint256.Int), new(uint256.Int)}
	}
	total := new(uint256.Int)
	emitted := new(uint256.Int)
	paid := new(uint256.Int)
	short := new(uint256.Int)
	settlements := uint64(0)

	rnd := rand.New(rand.NewPCG(1, 2))
	block := uint64(1)
	for range 500 {
		block += rnd.Uint64N(5)
		emitted.Add(emitted, e.Update(pool, total, block))

		u := &users[rnd.IntN(len(users))]
		pending, err := Pending(u.amount, pool.AccRewardPerShare, u.debt)
		require.NoError(t, err)
		pay := new(uint256.Int).Sub(emitted, paid)
		if pending.Lt(pay) {
			pay.Set(pending)
		}
		short.Add(short, new(uint256.Int).Sub(pending, pay))
		paid.Add(paid, pay)
		settlements++

		delta := uint256.NewInt(rnd.Uint64N(1000))
		if rnd.IntN(2) == 0 || u.amount.Lt(delta) {
			u.amount.Add(u.amount, delta)
			total.Add(total, delta)
		} else {
			u.amount.Sub(u.amount, delta)
			total.Sub(total, delta)
		}
		u.debt = Debt(u.amount, pool.AccRewardPerShare)
	}

	require.False(t, paid.Gt(emitted), "paid %v more than emitted %v", paid, emitted)
	assert.LessOrEqual(t, short.Uint64(), settlements)

	outstanding := new(uint256.Int)
	for _, u := range users {
		pending, err := Pending(u.amount, pool.AccRewardPerShare, u.debt)
		require.NoError(t, err)
		outstanding.Add(outstanding, pending)
	}
	owed := new(uint256.Int).Add(paid, outstanding)
	assert.LessOrEqual(t, owed.Uint64(), emitted.Uint64()+settlements+uint64(len(users)))
	if owed.Lt(emitted) {
		slack := new(uint256.Int).Sub(emitted, owed)
		assert.LessOrEqual(t, slack.Uint64(), settlements*uint64(len(users)))
	}
}
