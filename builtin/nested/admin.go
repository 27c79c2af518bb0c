// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nested

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/migrator"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/staking"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/xenv"
)

// Join stakes the ticket in master pool pid, which opens the master reward stream.
// Only the owner may call it, once.
func (a *Adapter) Join(env *xenv.Environment, pid uint64) error {
	if err := a.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return a.guard.Do(func() error {
		s, err := a.settings.Get()
		if err != nil {
			return err
		}
		if s.Joined {
			return reverts.Newf(reverts.InvalidParameter, "nested: already joined pool %d", s.Pid)
		}
		// credit what staking paid so far before the master stream starts
		if _, err := a.updatePool(env); err != nil {
			return err
		}
		m := master.New(s.Master, a.state)
		rec, err := m.PoolInfo(pid)
		if err != nil {
			return err
		}
		if rec.LPToken != s.Ticket {
			return reverts.Newf(reverts.InvalidParameter, "nested: pool %d does not stake the adapter ticket", pid)
		}
		s.Pid, s.Joined = pid, true
		if err := a.settings.Set(s); err != nil {
			return err
		}
		self := env.As(a.addr)
		one := uint256.NewInt(1)
		if err := token.New(s.Ticket, a.state).Approve(self, s.Master, one); err != nil {
			return err
		}
		if err := m.Deposit(self, pid, one); err != nil {
			return err
		}
		logger.Info("joined master pool", "adapter", a.addr, "pid", pid)
		return nil
	})
}

// SetMigrator installs the migrator used by Migrate. Only the owner may call it, once.
func (a *Adapter) SetMigrator(env *xenv.Environment, m farm.Address) error {
	if err := a.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	mig, err := a.migration.Get()
	if err != nil {
		return err
	}
	if mig.IsMigrateComplete {
		return reverts.New(reverts.AlreadyMigrated, "nested: already migrated")
	}
	if !mig.Migrator.IsZero() {
		return reverts.Newf(reverts.AlreadyMigrated, "nested: migrator already set to %v", mig.Migrator)
	}
	if m.IsZero() {
		return reverts.New(reverts.InvalidParameter, "nested: zero migrator")
	}
	mig.Migrator = m
	if err := a.migration.Set(mig); err != nil {
		return err
	}
	logger.Info("migrator updated", "adapter", a.addr, "migrator", m)
	return env.Log(eventMigratorUpdated, a.addr, []farm.Bytes32{xenv.AddressTopic(m)})
}

// Migrate takes the whole stake out of staking and swaps it for the LP of the new
// pair through the migrator. The new LP must match the old amount. Only the owner may
// call it, once. Positions are untouched and paid out in the new LP.
func (a *Adapter) Migrate(env *xenv.Environment) error {
	if err := a.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return a.guard.Do(func() error {
		mig, err := a.migration.Get()
		if err != nil {
			return err
		}
		if mig.IsMigrateComplete {
			return reverts.New(reverts.AlreadyMigrated, "nested: already migrated")
		}
		if mig.Migrator.IsZero() {
			return reverts.New(reverts.InvalidParameter, "nested: no migrator")
		}
		if _, err := a.updatePool(env); err != nil {
			return err
		}
		s, err := a.settings.Get()
		if err != nil {
			return err
		}
		self := env.As(a.addr)
		st := staking.New(s.Staking, a.state)
		staked, err := st.BalanceOf(a.addr)
		if err != nil {
			return err
		}
		if !staked.IsZero() {
			if err := st.Withdraw(self, staked); err != nil {
				return err
			}
		}
		old := token.New(mig.LPToken, a.state)
		oldAmount, err := old.BalanceOf(a.addr)
		if err != nil {
			return err
		}
		if err := old.Approve(self, mig.Migrator, oldAmount); err != nil {
			return err
		}
		newLP, err := migrator.New(mig.Migrator, a.state).Migrate(self, mig.LPToken)
		if err != nil {
			return err
		}
		newAmount, err := token.New(newLP, a.state).BalanceOf(a.addr)
		if err != nil {
			return err
		}
		if !newAmount.Eq(oldAmount) {
			return reverts.Newf(reverts.InvalidParameter, "nested: migrate bad, %v became %v", oldAmount.Dec(), newAmount.Dec())
		}
		logger.Info("migrated", "adapter", a.addr, "from", mig.LPToken, "to", newLP, "amount", newAmount)
		mig.LPToken = newLP
		mig.IsMigrateComplete = true
		if err := a.migration.Set(mig); err != nil {
			return err
		}
		return env.Log(eventMigrated, a.addr, nil, oldAmount, newAmount)
	})
}

// SetFeeRatio sets the percentage of the forwarded reward taken as a fee, at most farm.MaxFeeRatio.
func (a *Adapter) SetFeeRatio(env *xenv.Environment, ratio uint64) error {
	if err := a.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	if ratio > farm.MaxFeeRatio {
		return reverts.Newf(reverts.InvalidParameter, "nested: fee ratio %d above %d", ratio, farm.MaxFeeRatio)
	}
	return a.guard.Do(func() error {
		// the running interval is charged at the old ratio
		if _, err := a.updatePool(env); err != nil {
			return err
		}
		if err := a.feeRatio.Set(ratio); err != nil {
			return err
		}
		logger.Info("fee ratio updated", "adapter", a.addr, "ratio", ratio)
		return env.Log(eventFeeRatioUpdated, a.addr, nil, ratio)
	})
}

// SetFeeReceiver sets the receiver of the fee. Zero disables the fee.
func (a *Adapter) SetFeeReceiver(env *xenv.Environment, receiver farm.Address) error {
	if err := a.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return a.guard.Do(func() error {
		if _, err := a.updatePool(env); err != nil {
			return err
		}
		a.feeReceiver.Set(receiver)
		logger.Info("fee receiver updated", "adapter", a.addr, "receiver", receiver)
		return env.Log(eventFeeReceiverUpdated, a.addr, []farm.Bytes32{xenv.AddressTopic(receiver)})
	})
}
