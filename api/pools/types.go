// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/registry"
	"github.com/paiswap/paifarm/farm"
)

type Pool struct {
	Pid               uint64       `json:"pid"`
	LPToken           farm.Address `json:"lpToken"`
	AllocPoint        uint64       `json:"allocPoint"`
	LastRewardBlock   uint64       `json:"lastRewardBlock"`
	AccRewardPerShare *uint256.Int `json:"accRewardPerShare"`
	TotalStaked       *uint256.Int `json:"totalStaked"`
}

func convertPool(pid uint64, rec *registry.PoolRecord) *Pool {
	return &Pool{
		Pid:               pid,
		LPToken:           rec.LPToken,
		AllocPoint:        rec.AllocPoint,
		LastRewardBlock:   rec.LastRewardBlock,
		AccRewardPerShare: rec.AccRewardPerShare,
		TotalStaked:       rec.TotalStaked,
	}
}

type Schedule struct {
	Start    uint64 `json:"start"`
	BonusEnd uint64 `json:"bonusEnd"`
	End      uint64 `json:"end"`
}

// Emission summarizes the master at a block.
type Emission struct {
	Block           uint64       `json:"block"`
	RewardToken     farm.Address `json:"rewardToken"`
	RewardPerBlock  *uint256.Int `json:"rewardPerBlock"`
	TotalAllocPoint uint64       `json:"totalAllocPoint"`
	PoolLength      uint64       `json:"poolLength"`
	Schedule        Schedule     `json:"schedule"`
}

// Position is a user's stake in a pool with the reward it could harvest at Block.
type Position struct {
	Pid              uint64       `json:"pid"`
	User             farm.Address `json:"user"`
	Block            uint64       `json:"block"`
	Amount           *uint256.Int `json:"amount"`
	RewardDebt       *uint256.Int `json:"rewardDebt"`
	LastDepositBlock uint64       `json:"lastDepositBlock"`
	Pending          *uint256.Int `json:"pending"`
}

func convertPosition(pid uint64, user farm.Address, block uint64, pos *master.UserPosition, pending *uint256.Int) *Position {
	return &Position{
		Pid:              pid,
		User:             user,
		Block:            block,
		Amount:           pos.Amount,
		RewardDebt:       pos.RewardDebt,
		LastDepositBlock: pos.LastDepositBlock,
		Pending:          pending,
	}
}
