// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accumulator implements the fixed point reward accounting shared by every farm.
//
// A pool carries accRewardPerShare, the reward earned by one staked unit since the pool
// was created, scaled by Scale. A position carries a reward debt, the part of
// amount*acc/Scale already settled. The difference is the unpaid reward.
package accumulator

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/xenv"
)

// Scale is the fixed point precision of accumulators.
var Scale = uint256.NewInt(farm.AccPrecision)

// ErrBrokenInvariant is returned when a reward debt exceeds what the position earned.
var ErrBrokenInvariant = errors.New("accumulator: reward debt exceeds earned reward")

// Schedule is the emission window. Blocks in [Start, BonusEnd) earn BonusMultiplier
// times, blocks in [BonusEnd, End) earn once and blocks from End on earn nothing.
type Schedule struct {
	Start    uint64
	BonusEnd uint64
	End      uint64
}

// DefaultSchedule starts at start with the default bonus and farm lengths.
func DefaultSchedule(start uint64) Schedule {
	return Schedule{
		Start:    start,
		BonusEnd: start + farm.DefaultBonusLength,
		End:      start + farm.DefaultFarmLength,
	}
}

// Valid reports whether the window is ordered.
func (s Schedule) Valid() bool {
	return s.Start <= s.BonusEnd && s.BonusEnd <= s.End
}

// Multiplier returns the number of reward blocks between from and to.
func (s Schedule) Multiplier(from, to uint64) uint64 {
	from = max(from, s.Start)
	to = min(to, s.End)
	if to <= from {
		return 0
	}
	if to <= s.BonusEnd {
		return (to - from) * farm.BonusMultiplier
	}
	if from >= s.BonusEnd {
		return to - from
	}
	return (s.BonusEnd-from)*farm.BonusMultiplier + (to - s.BonusEnd)
}

// Pool is the accounting part of a pool record.
type Pool struct {
	AllocPoint        uint64
	LastRewardBlock   uint64
	AccRewardPerShare *uint256.Int
}

// Emission is the global emission state a pool draws from.
type Emission struct {
	RewardPerBlock  *uint256.Int
	TotalAllocPoint uint64
	Schedule
}

// Reward returns the emission due to pool between its last reward block and blockNow.
func (e *Emission) Reward(pool *Pool, blockNow uint64) *uint256.Int {
	if blockNow <= pool.LastRewardBlock || e.TotalAllocPoint == 0 || e.RewardPerBlock == nil {
		return new(uint256.Int)
	}
	reward := uint256.NewInt(e.Multiplier(pool.LastRewardBlock, blockNow))
	reward.Mul(reward, e.RewardPerBlock)
	reward.Mul(reward, uint256.NewInt(pool.AllocPoint))
	return reward.Div(reward, uint256.NewInt(e.TotalAllocPoint))
}

// Update brings pool up to blockNow and returns the reward it took. When nothing is
// staked the interval is skipped and its emission is forfeited.
func (e *Emission) Update(pool *Pool, totalStaked *uint256.Int, blockNow uint64) *uint256.Int {
	if blockNow <= pool.LastRewardBlock {
		return new(uint256.Int)
	}
	if pool.AccRewardPerShare == nil {
		pool.AccRewardPerShare = new(uint256.Int)
	}
	if totalStaked.IsZero() {
		pool.LastRewardBlock = blockNow
		return new(uint256.Int)
	}
	reward := e.Reward(pool, blockNow)
	pool.AccRewardPerShare = Accrue(pool.AccRewardPerShare, reward, totalStaked)
	pool.LastRewardBlock = blockNow
	return reward
}

// Project returns the accumulator pool would have at blockNow, without touching pool.
func (e *Emission) Project(pool *Pool, totalStaked *uint256.Int, blockNow uint64) *uint256.Int {
	acc := new(uint256.Int)
	if pool.AccRewardPerShare != nil {
		acc.Set(pool.AccRewardPerShare)
	}
	if blockNow <= pool.LastRewardBlock || totalStaked.IsZero() {
		return acc
	}
	return Accrue(acc, e.Reward(pool, blockNow), totalStaked)
}

// Accrue returns acc + reward*Scale/totalStaked. A zero stake leaves acc unchanged.
func Accrue(acc, reward, totalStaked *uint256.Int) *uint256.Int {
	next := new(uint256.Int).Set(acc)
	if totalStaked.IsZero() || reward.IsZero() {
		return next
	}
	inc := new(uint256.Int).Mul(reward, Scale)
	inc.Div(inc, totalStaked)
	return next.Add(next, inc)
}

// Debt returns amount*acc/Scale.
func Debt(amount, acc *uint256.Int) *uint256.Int {
	debt := new(uint256.Int).Mul(amount, acc)
	return debt.Div(debt, Scale)
}

// Pending returns amount*acc/Scale - debt.
func Pending(amount, acc, debt *uint256.Int) (*uint256.Int, error) {
	earned := Debt(amount, acc)
	if earned.Lt(debt) {
		return nil, errors.Wrapf(ErrBrokenInvariant, "earned %v, debt %v", earned.Dec(), debt.Dec())
	}
	return earned.Sub(earned, debt), nil
}

// Settler is a farm that settles pools lazily against an accumulator.
type Settler interface {
	// Update brings pool pid up to the current block.
	Update(env *xenv.Environment, pid uint64) error
	// PendingOf projects the unpaid primary reward of user in pool pid at blockNow.
	PendingOf(pid uint64, user farm.Address, blockNow uint64) (*uint256.Int, error)
	// Settle updates pool pid and pays the caller's pending reward. It returns the amount paid.
	Settle(env *xenv.Environment, pid uint64) (*uint256.Int, error)
}
