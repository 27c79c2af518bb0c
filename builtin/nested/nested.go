// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package nested implements a farm adapter that stakes LP in an external staking
// contract while occupying a reward master pool with its own ticket. Depositors earn
// the master reward and the forwarded staking reward, less a fee on the latter.
package nested

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/staking"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/metrics"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "nested"

var (
	logger = log.WithContext("pkg", "nested")

	ABI                     = abi.MustNew(gen.MustABI("nested"))
	eventDeposit            = ABI.MustEventByName("Deposit")
	eventWithdraw           = ABI.MustEventByName("Withdraw")
	eventEmergencyWithdraw  = ABI.MustEventByName("EmergencyWithdraw")
	eventMigrated           = ABI.MustEventByName("Migrated")
	eventFeeRatioUpdated    = ABI.MustEventByName("FeeRatioUpdated")
	eventMigratorUpdated    = ABI.MustEventByName("MigratorUpdated")
	eventFeeReceiverUpdated = ABI.MustEventByName("FeeReceiverUpdated")

	slotSettings    = solidity.Slot("nested.settings")
	slotMigration   = solidity.Slot("nested.migration")
	slotPool        = solidity.Slot("nested.pool")
	slotPositions   = solidity.Slot("nested.positions")
	slotFeeRatio    = solidity.Slot("nested.feeRatio")
	slotFeeReceiver = solidity.Slot("nested.feeReceiver")
)

var _ accumulator.Settler = (*Adapter)(nil)

// Config are the deployment parameters of an adapter.
type Config struct {
	Master  farm.Address
	LPToken farm.Address
	// Staking must stake LPToken and pay SecondaryToken.
	Staking        farm.Address
	SecondaryToken farm.Address
	FeeReceiver    farm.Address
}

type settings struct {
	Master         farm.Address
	Staking        farm.Address
	RewardToken    farm.Address
	SecondaryToken farm.Address
	Ticket         farm.Address
	Pid            uint64
	Joined         bool
}

// MigrationRecord tracks the one-shot move of the staked LP to a new pair.
type MigrationRecord struct {
	Migrator          farm.Address
	IsMigrateComplete bool
	// LPToken is the token positions are denominated in, the new pair after migration.
	LPToken farm.Address
}

// PoolState is the accounting of both reward streams.
type PoolState struct {
	TotalSupply     *uint256.Int
	LastRewardBlock uint64
	AccPaiPerShare  *uint256.Int
	AccUniPerShare  *uint256.Int
}

// UserPosition carries one reward debt per stream.
type UserPosition struct {
	Amount        *uint256.Int
	RewardDebt    *uint256.Int
	SecondaryDebt *uint256.Int
}

type Adapter struct {
	addr        farm.Address
	state       *state.State
	settings    *solidity.Raw[*settings]
	migration   *solidity.Raw[*MigrationRecord]
	pool        *solidity.Raw[*PoolState]
	positions   *solidity.Mapping[farm.Address, *UserPosition]
	feeRatio    *solidity.Raw[uint64]
	feeReceiver *solidity.Address
	owner       *access.Ownable
	guard       *access.Guard
}

func New(addr farm.Address, state *state.State) *Adapter {
	ctx := solidity.NewContext(addr, state)
	return &Adapter{
		addr:        addr,
		state:       state,
		settings:    solidity.NewRaw[*settings](ctx, slotSettings),
		migration:   solidity.NewRaw[*MigrationRecord](ctx, slotMigration),
		pool:        solidity.NewRaw[*PoolState](ctx, slotPool),
		positions:   solidity.NewMapping[farm.Address, *UserPosition](ctx, slotPositions),
		feeRatio:    solidity.NewRaw[uint64](ctx, slotFeeRatio),
		feeReceiver: solidity.NewAddress(ctx, slotFeeReceiver),
		owner:       access.NewOwnable(ctx),
		guard:       access.NewGuard(ctx),
	}
}

// Deploy creates an adapter at addr owned by the caller, together with its ticket.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Adapter, error) {
	if cfg.Master.IsZero() || cfg.LPToken.IsZero() || cfg.Staking.IsZero() || cfg.SecondaryToken.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "nested: zero address in config")
	}
	stakingCfg, err := staking.New(cfg.Staking, env.State()).Config()
	if err != nil {
		return nil, err
	}
	if stakingCfg.StakingToken != cfg.LPToken || stakingCfg.RewardToken != cfg.SecondaryToken {
		return nil, reverts.Newf(reverts.InvalidParameter, "nested: staking %v does not stake %v for %v", cfg.Staking, cfg.LPToken, cfg.SecondaryToken)
	}
	rewardToken, err := master.New(cfg.Master, env.State()).RewardToken()
	if err != nil {
		return nil, err
	}
	if rewardToken.IsZero() {
		return nil, reverts.Newf(reverts.InvalidParameter, "nested: no master at %v", cfg.Master)
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	a := New(addr, env.State())
	ticket, err := token.DeployTicket(env, addr, "NEST")
	if err != nil {
		return nil, err
	}
	if err := a.settings.Set(&settings{
		Master:         cfg.Master,
		Staking:        cfg.Staking,
		RewardToken:    rewardToken,
		SecondaryToken: cfg.SecondaryToken,
		Ticket:         ticket.Address(),
	}); err != nil {
		return nil, err
	}
	if err := a.migration.Set(&MigrationRecord{LPToken: cfg.LPToken}); err != nil {
		return nil, err
	}
	if err := a.feeRatio.Set(farm.DefaultFeeRatio); err != nil {
		return nil, err
	}
	a.feeReceiver.Set(cfg.FeeReceiver)
	if err := a.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	logger.Debug("deployed adapter", "address", addr, "master", cfg.Master, "lpToken", cfg.LPToken, "staking", cfg.Staking)
	return a, nil
}

// Getters

func (a *Adapter) Address() farm.Address { return a.addr }

func (a *Adapter) Owner() (farm.Address, error) { return a.owner.Owner() }

func (a *Adapter) FeeRatio() (uint64, error) { return a.feeRatio.Get() }

func (a *Adapter) FeeReceiver() (farm.Address, error) { return a.feeReceiver.Get() }

func (a *Adapter) Migration() (*MigrationRecord, error) { return a.migration.Get() }

// LPToken returns the token deposits are made in.
func (a *Adapter) LPToken() (farm.Address, error) {
	rec, err := a.migration.Get()
	if err != nil {
		return farm.Address{}, err
	}
	return rec.LPToken, nil
}

func (a *Adapter) Ticket() (farm.Address, error) {
	s, err := a.settings.Get()
	if err != nil {
		return farm.Address{}, err
	}
	return s.Ticket, nil
}

// Pool returns the master pool the adapter joined.
func (a *Adapter) Pool() (pid uint64, joined bool, err error) {
	s, err := a.settings.Get()
	if err != nil {
		return 0, false, err
	}
	return s.Pid, s.Joined, nil
}

func (a *Adapter) PoolState() (*PoolState, error) {
	ps, err := a.pool.Get()
	if err != nil {
		return nil, err
	}
	if ps.TotalSupply == nil {
		ps.TotalSupply = new(uint256.Int)
	}
	if ps.AccPaiPerShare == nil {
		ps.AccPaiPerShare = new(uint256.Int)
	}
	if ps.AccUniPerShare == nil {
		ps.AccUniPerShare = new(uint256.Int)
	}
	return ps, nil
}

func (a *Adapter) TotalSupply() (*uint256.Int, error) {
	ps, err := a.PoolState()
	if err != nil {
		return nil, err
	}
	return ps.TotalSupply, nil
}

func (a *Adapter) UserInfo(user farm.Address) (*UserPosition, error) {
	pos, err := a.positions.Get(user)
	if err != nil {
		return nil, err
	}
	if pos.Amount == nil {
		pos.Amount = new(uint256.Int)
	}
	if pos.RewardDebt == nil {
		pos.RewardDebt = new(uint256.Int)
	}
	if pos.SecondaryDebt == nil {
		pos.SecondaryDebt = new(uint256.Int)
	}
	return pos, nil
}

func (a *Adapter) putPosition(user farm.Address, pos *UserPosition) error {
	if pos.Amount.IsZero() && pos.RewardDebt.IsZero() && pos.SecondaryDebt.IsZero() {
		a.positions.Delete(user)
		return nil
	}
	return a.positions.Set(user, pos)
}

// fee splits the forwarded reward into the fee and the part credited to depositors.
// Without a fee receiver nothing is taken.
func (a *Adapter) fee(amount *uint256.Int) (fee, net *uint256.Int, err error) {
	receiver, err := a.feeReceiver.Get()
	if err != nil {
		return nil, nil, err
	}
	ratio, err := a.feeRatio.Get()
	if err != nil {
		return nil, nil, err
	}
	if receiver.IsZero() || ratio == 0 {
		return new(uint256.Int), new(uint256.Int).Set(amount), nil
	}
	fee = new(uint256.Int).Mul(amount, uint256.NewInt(ratio))
	fee.Div(fee, uint256.NewInt(100))
	return fee, new(uint256.Int).Sub(amount, fee), nil
}

// Pending projects the unpaid rewards of user at blockNow, master reward first.
func (a *Adapter) Pending(user farm.Address, blockNow uint64) (pai, uni *uint256.Int, err error) {
	ps, err := a.PoolState()
	if err != nil {
		return nil, nil, err
	}
	pos, err := a.UserInfo(user)
	if err != nil {
		return nil, nil, err
	}
	accPai, accUni := ps.AccPaiPerShare, ps.AccUniPerShare
	if blockNow > ps.LastRewardBlock && !ps.TotalSupply.IsZero() {
		s, err := a.settings.Get()
		if err != nil {
			return nil, nil, err
		}
		if s.Joined {
			harvestable, err := master.New(s.Master, a.state).PendingOf(s.Pid, a.addr, blockNow)
			if err != nil {
				return nil, nil, err
			}
			accPai = accumulator.Accrue(accPai, harvestable, ps.TotalSupply)
		}
		earned, err := staking.New(s.Staking, a.state).Earned(a.addr, blockNow)
		if err != nil {
			return nil, nil, err
		}
		_, net, err := a.fee(earned)
		if err != nil {
			return nil, nil, err
		}
		accUni = accumulator.Accrue(accUni, net, ps.TotalSupply)
	}
	if pai, err = accumulator.Pending(pos.Amount, accPai, pos.RewardDebt); err != nil {
		return nil, nil, err
	}
	if uni, err = accumulator.Pending(pos.Amount, accUni, pos.SecondaryDebt); err != nil {
		return nil, nil, err
	}
	return pai, uni, nil
}

// PendingOf projects the master reward of user. The adapter has the single pool 0.
func (a *Adapter) PendingOf(pid uint64, user farm.Address, blockNow uint64) (*uint256.Int, error) {
	if pid != 0 {
		return nil, reverts.Newf(reverts.InvalidParameter, "nested: no pool %d", pid)
	}
	pai, _, err := a.Pending(user, blockNow)
	return pai, err
}

// Settlement

// Update brings both streams up to the current block.
func (a *Adapter) Update(env *xenv.Environment, pid uint64) error {
	if pid != 0 {
		return reverts.Newf(reverts.InvalidParameter, "nested: no pool %d", pid)
	}
	return a.guard.Do(func() error {
		_, err := a.updatePool(env)
		return err
	})
}

// Settle pays the caller's pending rewards and returns the master reward paid.
func (a *Adapter) Settle(env *xenv.Environment, pid uint64) (paid *uint256.Int, err error) {
	if pid != 0 {
		return nil, reverts.Newf(reverts.InvalidParameter, "nested: no pool %d", pid)
	}
	err = a.guard.Do(func() error {
		paid, err = a.withdraw(env, new(uint256.Int))
		return err
	})
	return
}

func (a *Adapter) updatePool(env *xenv.Environment) (*PoolState, error) {
	ps, err := a.PoolState()
	if err != nil {
		return nil, err
	}
	blockNow := env.BlockNumber()
	if blockNow <= ps.LastRewardBlock {
		return ps, nil
	}
	s, err := a.settings.Get()
	if err != nil {
		return nil, err
	}
	self := env.As(a.addr)
	harvested := new(uint256.Int)
	if s.Joined {
		harvested, err = a.collect(s.RewardToken, func() error {
			_, err := master.New(s.Master, a.state).Settle(self, s.Pid)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	forwarded, err := a.collect(s.SecondaryToken, func() error {
		_, err := staking.New(s.Staking, a.state).GetReward(self)
		return err
	})
	if err != nil {
		return nil, err
	}
	ps.LastRewardBlock = blockNow

	// nobody staked through the interval, so its emission is forfeited
	if ps.TotalSupply.IsZero() {
		if err := a.forfeit(self, s.RewardToken, harvested); err != nil {
			return nil, err
		}
		if err := a.forfeit(self, s.SecondaryToken, forwarded); err != nil {
			return nil, err
		}
		return ps, a.pool.Set(ps)
	}

	ps.AccPaiPerShare = accumulator.Accrue(ps.AccPaiPerShare, harvested, ps.TotalSupply)
	fee, net, err := a.fee(forwarded)
	if err != nil {
		return nil, err
	}
	if !fee.IsZero() {
		receiver, err := a.feeReceiver.Get()
		if err != nil {
			return nil, err
		}
		if err := token.New(s.SecondaryToken, a.state).Transfer(self, receiver, fee); err != nil {
			return nil, err
		}
		metricFeeAmount().AddWithLabel(metrics.Amount(fee), map[string]string{"contract": Kind})
	}
	ps.AccUniPerShare = accumulator.Accrue(ps.AccUniPerShare, net, ps.TotalSupply)
	if err := a.pool.Set(ps); err != nil {
		return nil, err
	}
	logger.Trace("pool updated", "block", blockNow, "pai", harvested, "uni", forwarded, "fee", fee)
	return ps, nil
}

// collect runs harvest and returns how much of tok the adapter gained from it.
func (a *Adapter) collect(tok farm.Address, harvest func() error) (*uint256.Int, error) {
	t := token.New(tok, a.state)
	before, err := t.BalanceOf(a.addr)
	if err != nil {
		return nil, err
	}
	if err := harvest(); err != nil {
		return nil, err
	}
	after, err := t.BalanceOf(a.addr)
	if err != nil {
		return nil, err
	}
	if after.Lt(before) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(after, before), nil
}

func (a *Adapter) forfeit(env *xenv.Environment, tok farm.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	logger.Debug("reward forfeited", "adapter", a.addr, "token", tok, "amount", amount)
	return token.New(tok, a.state).Burn(env, amount)
}
