// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package master

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/registry"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/xenv"
)

// Deposit stakes amount LP of pool pid for the caller after paying their pending
// reward. A zero amount only harvests.
func (m *Master) Deposit(env *xenv.Environment, pid uint64, amount *uint256.Int) error {
	return m.guard.Do(func() error {
		_, err := m.deposit(env, pid, amount)
		return err
	})
}

func (m *Master) deposit(env *xenv.Environment, pid uint64, amount *uint256.Int) (*uint256.Int, error) {
	user := env.Caller()
	rec, err := m.updatePool(env, pid)
	if err != nil {
		return nil, err
	}
	pos, err := m.position(rec.LPToken, user)
	if err != nil {
		return nil, err
	}
	pending, err := accumulator.Pending(pos.Amount, rec.AccRewardPerShare, pos.RewardDebt)
	if err != nil {
		return nil, err
	}

	if !amount.IsZero() {
		pos.Amount = new(uint256.Int).Add(pos.Amount, amount)
		pos.LastDepositBlock = env.BlockNumber()
		rec.TotalStaked = new(uint256.Int).Add(rec.TotalStaked, amount)
		if err := m.pools.Put(pid, rec); err != nil {
			return nil, err
		}
	}
	pos.RewardDebt = accumulator.Debt(pos.Amount, rec.AccRewardPerShare)
	if err := m.putPosition(rec.LPToken, user, pos); err != nil {
		return nil, err
	}

	// interactions, LP first so the reward reserve sees the new stake
	if !amount.IsZero() {
		if err := token.New(rec.LPToken, m.state).TransferFrom(env.As(m.addr), user, m.addr, amount); err != nil {
			return nil, err
		}
		metricDepositCount().AddWithLabel(1, map[string]string{"contract": Kind})
	}
	paid, err := m.payReward(env, user, pid, pending)
	if err != nil {
		return nil, err
	}
	logger.Debug("deposit", "pid", pid, "user", user, "amount", amount, "paid", paid)
	if err := env.Log(eventDeposit, m.addr, []farm.Bytes32{xenv.AddressTopic(user), xenv.Uint64Topic(pid)}, amount); err != nil {
		return nil, err
	}
	return paid, nil
}

// Withdraw unstakes amount LP of pool pid for the caller after paying their pending reward.
func (m *Master) Withdraw(env *xenv.Environment, pid uint64, amount *uint256.Int) error {
	return m.guard.Do(func() error {
		user := env.Caller()
		rec, err := m.pools.Get(pid)
		if err != nil {
			return err
		}
		pos, err := m.position(rec.LPToken, user)
		if err != nil {
			return err
		}
		if amount.Gt(pos.Amount) {
			return reverts.Newf(reverts.InsufficientFunds, "master: withdraw not good, staked %v", pos.Amount.Dec())
		}
		if rec, err = m.updatePool(env, pid); err != nil {
			return err
		}
		pending, err := accumulator.Pending(pos.Amount, rec.AccRewardPerShare, pos.RewardDebt)
		if err != nil {
			return err
		}
		lastDeposit := pos.LastDepositBlock
		pos.Amount = new(uint256.Int).Sub(pos.Amount, amount)
		pos.RewardDebt = accumulator.Debt(pos.Amount, rec.AccRewardPerShare)
		if err := m.putPosition(rec.LPToken, user, pos); err != nil {
			return err
		}
		rec.TotalStaked = new(uint256.Int).Sub(rec.TotalStaked, amount)
		if err := m.pools.Put(pid, rec); err != nil {
			return err
		}

		if err := m.returnLP(env, rec.LPToken, user, amount, lastDeposit); err != nil {
			return err
		}
		paid, err := m.payReward(env, user, pid, pending)
		if err != nil {
			return err
		}
		metricWithdrawCount().AddWithLabel(1, map[string]string{"contract": Kind, "kind": "normal"})
		logger.Debug("withdraw", "pid", pid, "user", user, "amount", amount, "paid", paid)
		return env.Log(eventWithdraw, m.addr, []farm.Bytes32{xenv.AddressTopic(user), xenv.Uint64Topic(pid)}, amount)
	})
}

// EmergencyWithdraw returns the caller's whole stake of pool pid and forfeits their pending reward.
func (m *Master) EmergencyWithdraw(env *xenv.Environment, pid uint64) error {
	return m.guard.Do(func() error {
		user := env.Caller()
		rec, err := m.pools.Get(pid)
		if err != nil {
			return err
		}
		pos, err := m.position(rec.LPToken, user)
		if err != nil {
			return err
		}
		amount := pos.Amount
		if err := m.putPosition(rec.LPToken, user, &UserPosition{Amount: new(uint256.Int), RewardDebt: new(uint256.Int)}); err != nil {
			return err
		}
		rec.TotalStaked = new(uint256.Int).Sub(rec.TotalStaked, amount)
		if err := m.pools.Put(pid, rec); err != nil {
			return err
		}

		// emergency exits return the whole stake, without the early withdrawal fee
		if !amount.IsZero() {
			if err := token.New(rec.LPToken, m.state).Transfer(env.As(m.addr), user, amount); err != nil {
				return err
			}
		}
		metricWithdrawCount().AddWithLabel(1, map[string]string{"contract": Kind, "kind": "emergency"})
		logger.Info("emergency withdraw", "pid", pid, "user", user, "amount", amount)
		return env.Log(eventEmergencyWithdraw, m.addr, []farm.Bytes32{xenv.AddressTopic(user), xenv.Uint64Topic(pid)}, amount)
	})
}

// returnLP sends amount LP back to user, keeping the early withdrawal fee when
// the deposit is younger than MinWithdrawInterval blocks.
func (m *Master) returnLP(env *xenv.Environment, lpToken, user farm.Address, amount *uint256.Int, lastDeposit uint64) error {
	if amount.IsZero() {
		return nil
	}
	lp := token.New(lpToken, m.state)
	self := env.As(m.addr)
	receiver, err := m.lpFeeReceiver.Get()
	if err != nil {
		return err
	}
	out := amount
	if !receiver.IsZero() && env.BlockNumber() < lastDeposit+farm.MinWithdrawInterval {
		fee := new(uint256.Int).Mul(amount, uint256.NewInt(farm.LPFeePercent))
		fee.Div(fee, uint256.NewInt(100))
		if !fee.IsZero() {
			if err := lp.Transfer(self, receiver, fee); err != nil {
				return err
			}
			out = new(uint256.Int).Sub(amount, fee)
		}
	}
	return lp.Transfer(self, user, out)
}

// Administration

// Add registers a pool for lpToken. withUpdate settles every pool first.
func (m *Master) Add(env *xenv.Environment, allocPoint uint64, lpToken farm.Address, withUpdate bool) (pid uint64, err error) {
	if err := m.owner.OnlyOwner(env.Caller()); err != nil {
		return 0, err
	}
	err = m.guard.Do(func() error {
		if withUpdate {
			if err := m.MassUpdatePools(env); err != nil {
				return err
			}
		}
		sched, err := m.Schedule()
		if err != nil {
			return err
		}
		if pid, err = m.pools.Add(allocPoint, lpToken, true, env.BlockNumber(), sched.Start); err != nil {
			return err
		}
		logger.Info("pool added", "pid", pid, "lpToken", lpToken, "allocPoint", allocPoint)
		return env.Log(eventPoolAdded, m.addr, []farm.Bytes32{xenv.Uint64Topic(pid), xenv.AddressTopic(lpToken)}, allocPoint)
	})
	return
}

// Set changes the weight of pool pid. withUpdate settles every pool first.
func (m *Master) Set(env *xenv.Environment, pid uint64, allocPoint uint64, withUpdate bool) error {
	if err := m.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return m.guard.Do(func() error {
		if withUpdate {
			if err := m.MassUpdatePools(env); err != nil {
				return err
			}
		}
		if err := m.pools.Set(pid, allocPoint); err != nil {
			return err
		}
		total, err := m.pools.TotalAllocPoint()
		if err != nil {
			return err
		}
		logger.Info("pool reweighted", "pid", pid, "allocPoint", allocPoint, "totalAllocPoint", total)
		return env.Log(eventPoolReweighted, m.addr, []farm.Bytes32{xenv.Uint64Topic(pid)}, allocPoint, total)
	})
}

// Remove deletes an empty pool. The last pool takes its id.
func (m *Master) Remove(env *xenv.Environment, pid uint64) error {
	if err := m.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return m.guard.Do(func() error {
		rec, err := m.pools.Get(pid)
		if err != nil {
			return err
		}
		if !rec.TotalStaked.IsZero() {
			return reverts.Newf(reverts.InvalidParameter, "master: pool %d still staked %v", pid, rec.TotalStaked.Dec())
		}
		// settle the others before the total weight shrinks
		if err := m.MassUpdatePools(env); err != nil {
			return err
		}
		if _, err := m.pools.Remove(pid); err != nil {
			return err
		}
		logger.Info("pool removed", "pid", pid, "lpToken", rec.LPToken)
		return env.Log(eventPoolRemoved, m.addr, []farm.Bytes32{xenv.Uint64Topic(pid), xenv.AddressTopic(rec.LPToken)})
	})
}

// SetRewardPerBlock settles every pool and changes the emission rate.
func (m *Master) SetRewardPerBlock(env *xenv.Environment, rewardPerBlock *uint256.Int) error {
	if err := m.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return m.guard.Do(func() error {
		if err := m.MassUpdatePools(env); err != nil {
			return err
		}
		m.rewardPerBlock.Set(rewardPerBlock)
		logger.Info("reward per block updated", "rewardPerBlock", rewardPerBlock)
		return env.Log(eventRewardPerBlockUpdate, m.addr, nil, rewardPerBlock)
	})
}

// SetLPFeeReceiver sets the receiver of the early withdrawal fee. Zero disables the fee.
func (m *Master) SetLPFeeReceiver(env *xenv.Environment, receiver farm.Address) error {
	if err := m.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	m.lpFeeReceiver.Set(receiver)
	return env.Log(eventLPFeeReceiverUpdate, m.addr, []farm.Bytes32{xenv.AddressTopic(receiver)})
}

// Pools returns every pool record in id order.
func (m *Master) Pools() ([]*registry.PoolRecord, error) {
	n, err := m.pools.Len()
	if err != nil {
		return nil, err
	}
	out := make([]*registry.PoolRecord, 0, n)
	for pid := range n {
		rec, err := m.pools.Get(pid)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
