// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lockvault implements a vault that farms one master pool with a ticket and
// releases the harvested reward to a receiver on a time lock.
//
// At most one release happens every withdraw interval. A release hands over the
// whole balance once it is at or below the half threshold, and half of it otherwise.
package lockvault

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/metrics"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "lockvault"

var (
	logger = log.WithContext("pkg", "lockvault")

	ABI                  = abi.MustNew(gen.MustABI("lockvault"))
	eventJoined          = ABI.MustEventByName("Joined")
	eventHarvested       = ABI.MustEventByName("Harvested")
	eventReleased        = ABI.MustEventByName("Released")
	eventReceiverUpdated = ABI.MustEventByName("ReceiverUpdated")

	slotSettings          = solidity.Slot("lockvault.settings")
	slotReceiver          = solidity.Slot("lockvault.receiver")
	slotLastWithdrawBlock = solidity.Slot("lockvault.lastWithdrawBlock")

	metricReleaseAmount = metrics.LazyLoadCounterVec("release_amount", []string{"contract"})
	metricHarvestAmount = metrics.LazyLoadCounterVec("harvest_amount", []string{"contract"})
)

// Config are the deployment parameters of a vault.
type Config struct {
	RewardToken farm.Address
	// Master is the farm the vault joins. A vault without one only releases what it is sent.
	Master   farm.Address
	Receiver farm.Address
	// HalfThreshold overrides farm.DefaultWithdrawHalfThreshold when set.
	HalfThreshold *uint256.Int
}

type settings struct {
	RewardToken   farm.Address
	Master        farm.Address
	Ticket        farm.Address
	HalfThreshold *uint256.Int
	Pid           uint64
	Joined        bool
}

type Vault struct {
	addr              farm.Address
	state             *state.State
	ctx               *solidity.Context
	settings          *solidity.Raw[*settings]
	receiver          *solidity.Address
	lastWithdrawBlock *solidity.Raw[uint64]
	owner             *access.Ownable
	guard             *access.Guard
}

func New(addr farm.Address, state *state.State) *Vault {
	ctx := solidity.NewContext(addr, state)
	return &Vault{
		addr:              addr,
		state:             state,
		ctx:               ctx,
		settings:          solidity.NewRaw[*settings](ctx, slotSettings),
		receiver:          solidity.NewAddress(ctx, slotReceiver),
		lastWithdrawBlock: solidity.NewRaw[uint64](ctx, slotLastWithdrawBlock),
		owner:             access.NewOwnable(ctx),
		guard:             access.NewGuard(ctx),
	}
}

func withdrawInterval() *solidity.ConfigVariable {
	return solidity.NewConfigVariable("lockvault-withdraw-interval", farm.DefaultWithdrawInterval)
}

// Deploy creates a vault at addr owned by the caller, together with its ticket.
// The lock starts at the deploy block.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Vault, error) {
	if cfg.RewardToken.IsZero() || cfg.Receiver.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "lockvault: zero reward token or receiver")
	}
	threshold := farm.DefaultWithdrawHalfThreshold
	if cfg.HalfThreshold != nil && !cfg.HalfThreshold.IsZero() {
		threshold = cfg.HalfThreshold
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	v := New(addr, env.State())
	ticket, err := token.DeployTicket(env, addr, "LOCK")
	if err != nil {
		return nil, err
	}
	if err := v.settings.Set(&settings{
		RewardToken:   cfg.RewardToken,
		Master:        cfg.Master,
		Ticket:        ticket.Address(),
		HalfThreshold: threshold,
	}); err != nil {
		return nil, err
	}
	v.receiver.Set(cfg.Receiver)
	if err := v.lastWithdrawBlock.Set(env.BlockNumber()); err != nil {
		return nil, err
	}
	if err := v.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	logger.Debug("deployed vault", "address", addr, "master", cfg.Master, "receiver", cfg.Receiver, "ticket", ticket.Address())
	return v, nil
}

// Getters

func (v *Vault) Address() farm.Address { return v.addr }

func (v *Vault) Owner() (farm.Address, error) { return v.owner.Owner() }

func (v *Vault) Receiver() (farm.Address, error) { return v.receiver.Get() }

func (v *Vault) LastWithdrawBlock() (uint64, error) { return v.lastWithdrawBlock.Get() }

// WithdrawInterval is the number of blocks between two releases.
func (v *Vault) WithdrawInterval() uint64 {
	c := withdrawInterval()
	c.Override(v.ctx)
	return c.Get()
}

func (v *Vault) Ticket() (farm.Address, error) {
	s, err := v.settings.Get()
	if err != nil {
		return farm.Address{}, err
	}
	return s.Ticket, nil
}

func (v *Vault) HalfThreshold() (*uint256.Int, error) {
	s, err := v.settings.Get()
	if err != nil {
		return nil, err
	}
	return s.HalfThreshold, nil
}

// Pool returns the master pool the vault joined.
func (v *Vault) Pool() (pid uint64, joined bool, err error) {
	s, err := v.settings.Get()
	if err != nil {
		return 0, false, err
	}
	return s.Pid, s.Joined, nil
}

// Balance is the reward held by the vault.
func (v *Vault) Balance() (*uint256.Int, error) {
	s, err := v.settings.Get()
	if err != nil {
		return nil, err
	}
	return token.New(s.RewardToken, v.state).BalanceOf(v.addr)
}

// Pending projects the reward the vault could harvest at blockNow.
func (v *Vault) Pending(blockNow uint64) (*uint256.Int, error) {
	s, err := v.settings.Get()
	if err != nil {
		return nil, err
	}
	if !s.Joined {
		return new(uint256.Int), nil
	}
	return master.New(s.Master, v.state).PendingOf(s.Pid, v.addr, blockNow)
}

// Mutations

// Join stakes the ticket in master pool pid. Only the owner may call it, once.
func (v *Vault) Join(env *xenv.Environment, pid uint64) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return v.guard.Do(func() error {
		s, err := v.settings.Get()
		if err != nil {
			return err
		}
		if s.Master.IsZero() {
			return reverts.New(reverts.InvalidParameter, "lockvault: no master")
		}
		if s.Joined {
			return reverts.Newf(reverts.InvalidParameter, "lockvault: already joined pool %d", s.Pid)
		}
		m := master.New(s.Master, v.state)
		rec, err := m.PoolInfo(pid)
		if err != nil {
			return err
		}
		if rec.LPToken != s.Ticket {
			return reverts.Newf(reverts.InvalidParameter, "lockvault: pool %d does not stake the vault ticket", pid)
		}
		s.Pid, s.Joined = pid, true
		if err := v.settings.Set(s); err != nil {
			return err
		}

		self := env.As(v.addr)
		one := uint256.NewInt(1)
		if err := token.New(s.Ticket, v.state).Approve(self, s.Master, one); err != nil {
			return err
		}
		if err := m.Deposit(self, pid, one); err != nil {
			return err
		}
		logger.Info("joined master pool", "vault", v.addr, "pid", pid)
		return env.Log(eventJoined, v.addr, []farm.Bytes32{xenv.Uint64Topic(pid)})
	})
}

// Harvest collects the vault's pending master reward. Anyone may call it.
func (v *Vault) Harvest(env *xenv.Environment) (harvested *uint256.Int, err error) {
	err = v.guard.Do(func() error {
		s, err := v.settings.Get()
		if err != nil {
			return err
		}
		if !s.Joined {
			return reverts.New(reverts.InvalidParameter, "lockvault: not joined")
		}
		if harvested, err = master.New(s.Master, v.state).Settle(env.As(v.addr), s.Pid); err != nil {
			return err
		}
		metricHarvestAmount().AddWithLabel(metrics.Amount(harvested), map[string]string{"contract": Kind})
		logger.Debug("harvested", "vault", v.addr, "amount", harvested)
		return env.Log(eventHarvested, v.addr, nil, harvested)
	})
	return
}

// Release sends the next unlocked part of the balance to the receiver. Anyone may call it.
func (v *Vault) Release(env *xenv.Environment) (*uint256.Int, error) {
	return v.release(env, func(balance, threshold *uint256.Int) (*uint256.Int, error) {
		if balance.Gt(threshold) {
			return new(uint256.Int).Rsh(balance, 1), nil
		}
		return balance, nil
	})
}

// ReleaseAmount sends exactly amount to the receiver, under the same lock as Release.
// Only the owner may call it.
func (v *Vault) ReleaseAmount(env *xenv.Environment, amount *uint256.Int) (*uint256.Int, error) {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return nil, err
	}
	return v.release(env, func(balance, _ *uint256.Int) (*uint256.Int, error) {
		if amount.Gt(balance) {
			return nil, reverts.Newf(reverts.InsufficientFunds, "lockvault: release %v exceeds balance %v", amount.Dec(), balance.Dec())
		}
		return amount, nil
	})
}

func (v *Vault) release(env *xenv.Environment, pick func(balance, threshold *uint256.Int) (*uint256.Int, error)) (amount *uint256.Int, err error) {
	err = v.guard.Do(func() error {
		last, err := v.lastWithdrawBlock.Get()
		if err != nil {
			return err
		}
		blockNow := env.BlockNumber()
		if unlock := last + v.WithdrawInterval(); blockNow < unlock {
			return reverts.Newf(reverts.LockedPeriod, "lockvault: pai locked until block %d", unlock)
		}
		s, err := v.settings.Get()
		if err != nil {
			return err
		}
		rt := token.New(s.RewardToken, v.state)
		balance, err := rt.BalanceOf(v.addr)
		if err != nil {
			return err
		}
		if amount, err = pick(balance, s.HalfThreshold); err != nil {
			return err
		}
		if amount.IsZero() {
			return reverts.New(reverts.ZeroAmount, "lockvault: zero pai amount")
		}
		receiver, err := v.receiver.Get()
		if err != nil {
			return err
		}
		if err := v.lastWithdrawBlock.Set(blockNow); err != nil {
			return err
		}
		if err := rt.Transfer(env.As(v.addr), receiver, amount); err != nil {
			return err
		}
		metricReleaseAmount().AddWithLabel(metrics.Amount(amount), map[string]string{"contract": Kind})
		logger.Info("released", "vault", v.addr, "receiver", receiver, "amount", amount)
		return env.Log(eventReleased, v.addr, []farm.Bytes32{xenv.AddressTopic(receiver)}, amount)
	})
	return
}

// SetReceiver changes the receiver of releases. Only the owner may call it.
func (v *Vault) SetReceiver(env *xenv.Environment, receiver farm.Address) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	if receiver.IsZero() {
		return reverts.New(reverts.InvalidParameter, "lockvault: zero receiver")
	}
	v.receiver.Set(receiver)
	logger.Info("receiver updated", "vault", v.addr, "receiver", receiver)
	return env.Log(eventReceiverUpdated, v.addr, []farm.Bytes32{xenv.AddressTopic(receiver)})
}
