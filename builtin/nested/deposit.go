// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nested

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/staking"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/metrics"
	"github.com/paiswap/paifarm/xenv"
)

// Deposit stakes amount LP for the caller after paying both their pending rewards.
// A zero amount only harvests. Deposits close once the LP is migrated.
func (a *Adapter) Deposit(env *xenv.Environment, amount *uint256.Int) error {
	return a.guard.Do(func() error {
		mig, err := a.migration.Get()
		if err != nil {
			return err
		}
		if mig.IsMigrateComplete {
			return reverts.New(reverts.MigrationComplete, "nested: deposits closed after migration")
		}
		user := env.Caller()
		ps, err := a.updatePool(env)
		if err != nil {
			return err
		}
		pos, err := a.UserInfo(user)
		if err != nil {
			return err
		}
		pai, uni, err := pendings(pos, ps)
		if err != nil {
			return err
		}
		if !amount.IsZero() {
			pos.Amount = new(uint256.Int).Add(pos.Amount, amount)
			ps.TotalSupply = new(uint256.Int).Add(ps.TotalSupply, amount)
			if err := a.pool.Set(ps); err != nil {
				return err
			}
		}
		pos.RewardDebt = accumulator.Debt(pos.Amount, ps.AccPaiPerShare)
		pos.SecondaryDebt = accumulator.Debt(pos.Amount, ps.AccUniPerShare)
		if err := a.putPosition(user, pos); err != nil {
			return err
		}

		if _, err := a.pay(env, user, pai, uni); err != nil {
			return err
		}
		if !amount.IsZero() {
			s, err := a.settings.Get()
			if err != nil {
				return err
			}
			self := env.As(a.addr)
			lp := token.New(mig.LPToken, a.state)
			if err := lp.TransferFrom(self, user, a.addr, amount); err != nil {
				return err
			}
			if err := lp.Approve(self, s.Staking, amount); err != nil {
				return err
			}
			if err := staking.New(s.Staking, a.state).Stake(self, amount); err != nil {
				return err
			}
			metricDepositCount().AddWithLabel(1, map[string]string{"contract": Kind})
		}
		logger.Debug("deposit", "user", user, "amount", amount, "pai", pai, "uni", uni)
		return env.Log(eventDeposit, a.addr, []farm.Bytes32{xenv.AddressTopic(user)}, amount)
	})
}

// Withdraw unstakes amount LP for the caller after paying both their pending rewards.
// After migration the new LP is paid out.
func (a *Adapter) Withdraw(env *xenv.Environment, amount *uint256.Int) error {
	return a.guard.Do(func() error {
		_, err := a.withdraw(env, amount)
		return err
	})
}

func (a *Adapter) withdraw(env *xenv.Environment, amount *uint256.Int) (*uint256.Int, error) {
	user := env.Caller()
	pos, err := a.UserInfo(user)
	if err != nil {
		return nil, err
	}
	if amount.Gt(pos.Amount) {
		return nil, reverts.Newf(reverts.InsufficientFunds, "nested: withdraw not good, staked %v", pos.Amount.Dec())
	}
	ps, err := a.updatePool(env)
	if err != nil {
		return nil, err
	}
	pai, uni, err := pendings(pos, ps)
	if err != nil {
		return nil, err
	}
	pos.Amount = new(uint256.Int).Sub(pos.Amount, amount)
	pos.RewardDebt = accumulator.Debt(pos.Amount, ps.AccPaiPerShare)
	pos.SecondaryDebt = accumulator.Debt(pos.Amount, ps.AccUniPerShare)
	if err := a.putPosition(user, pos); err != nil {
		return nil, err
	}
	if !amount.IsZero() {
		ps.TotalSupply = new(uint256.Int).Sub(ps.TotalSupply, amount)
		if err := a.pool.Set(ps); err != nil {
			return nil, err
		}
	}

	paid, err := a.pay(env, user, pai, uni)
	if err != nil {
		return nil, err
	}
	if !amount.IsZero() {
		if err := a.returnLP(env, user, amount); err != nil {
			return nil, err
		}
		metricWithdrawCount().AddWithLabel(1, map[string]string{"contract": Kind, "kind": "normal"})
	}
	logger.Debug("withdraw", "user", user, "amount", amount, "pai", pai, "uni", uni)
	if err := env.Log(eventWithdraw, a.addr, []farm.Bytes32{xenv.AddressTopic(user)}, amount); err != nil {
		return nil, err
	}
	return paid, nil
}

// EmergencyWithdraw returns the caller's whole stake and forfeits both pending rewards.
func (a *Adapter) EmergencyWithdraw(env *xenv.Environment) error {
	return a.guard.Do(func() error {
		user := env.Caller()
		pos, err := a.UserInfo(user)
		if err != nil {
			return err
		}
		ps, err := a.PoolState()
		if err != nil {
			return err
		}
		amount := pos.Amount
		a.positions.Delete(user)
		ps.TotalSupply = new(uint256.Int).Sub(ps.TotalSupply, amount)
		if err := a.pool.Set(ps); err != nil {
			return err
		}
		if err := a.returnLP(env, user, amount); err != nil {
			return err
		}
		metricWithdrawCount().AddWithLabel(1, map[string]string{"contract": Kind, "kind": "emergency"})
		logger.Info("emergency withdraw", "user", user, "amount", amount)
		return env.Log(eventEmergencyWithdraw, a.addr, []farm.Bytes32{xenv.AddressTopic(user)}, amount)
	})
}

func pendings(pos *UserPosition, ps *PoolState) (pai, uni *uint256.Int, err error) {
	if pai, err = accumulator.Pending(pos.Amount, ps.AccPaiPerShare, pos.RewardDebt); err != nil {
		return nil, nil, err
	}
	if uni, err = accumulator.Pending(pos.Amount, ps.AccUniPerShare, pos.SecondaryDebt); err != nil {
		return nil, nil, err
	}
	return pai, uni, nil
}

// pay sends both rewards to user, each capped at what the adapter holds so that
// accumulator rounding never fails a harvest.
// It returns the primary reward paid.
func (a *Adapter) pay(env *xenv.Environment, user farm.Address, pai, uni *uint256.Int) (*uint256.Int, error) {
	s, err := a.settings.Get()
	if err != nil {
		return nil, err
	}
	self := env.As(a.addr)
	paid := new(uint256.Int)
	if !pai.IsZero() {
		if paid, err = token.New(s.RewardToken, a.state).TransferUpTo(self, user, pai); err != nil {
			return nil, err
		}
		metricHarvestAmount().AddWithLabel(metrics.Amount(paid), map[string]string{"contract": Kind})
	}
	if !uni.IsZero() {
		if _, err := token.New(s.SecondaryToken, a.state).TransferUpTo(self, user, uni); err != nil {
			return nil, err
		}
	}
	return paid, nil
}

// returnLP sends amount LP to user, taking it out of staking until the migration.
func (a *Adapter) returnLP(env *xenv.Environment, user farm.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	mig, err := a.migration.Get()
	if err != nil {
		return err
	}
	self := env.As(a.addr)
	if !mig.IsMigrateComplete {
		s, err := a.settings.Get()
		if err != nil {
			return err
		}
		if err := staking.New(s.Staking, a.state).Withdraw(self, amount); err != nil {
			return err
		}
	}
	return token.New(mig.LPToken, a.state).Transfer(self, user, amount)
}
