// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package master implements the reward master, a chef style farm paying a reward
// token per block to LP stakers in proportion to pool weights.
package master

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/registry"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/metrics"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

// Kind is recorded as the code of a deployed master.
const Kind = "master"

var (
	logger = log.WithContext("pkg", "master")

	ABI                       = abi.MustNew(gen.MustABI("master"))
	eventDeposit              = ABI.MustEventByName("Deposit")
	eventWithdraw             = ABI.MustEventByName("Withdraw")
	eventEmergencyWithdraw    = ABI.MustEventByName("EmergencyWithdraw")
	eventHarvest              = ABI.MustEventByName("Harvest")
	eventPoolAdded            = ABI.MustEventByName("PoolAdded")
	eventPoolReweighted       = ABI.MustEventByName("PoolReweighted")
	eventPoolRemoved          = ABI.MustEventByName("PoolRemoved")
	eventRewardPerBlockUpdate = ABI.MustEventByName("RewardPerBlockUpdated")
	eventLPFeeReceiverUpdate  = ABI.MustEventByName("LPFeeReceiverUpdated")

	slotSettings       = solidity.Slot("master.settings")
	slotRewardPerBlock = solidity.Slot("master.rewardPerBlock")
	slotLPFeeReceiver  = solidity.Slot("master.lpFeeReceiver")
	slotPositions      = solidity.Slot("master.positions")

	// devShareDivisor is the part of minted emission credited to the dev address.
	devShareDivisor = uint256.NewInt(10)
)

var _ accumulator.Settler = (*Master)(nil)

// Config are the deployment parameters of a master.
type Config struct {
	RewardToken    farm.Address
	RewardPerBlock *uint256.Int
	Schedule       accumulator.Schedule
	// MintRewards makes the master mint emission, which requires it to own the reward token.
	// Otherwise rewards are paid out of its reward token balance.
	MintRewards bool
	// DevAddr receives a tenth of minted emission on top. Zero disables it.
	DevAddr farm.Address
	// LPFeeReceiver takes the early withdrawal fee. Zero disables the fee.
	LPFeeReceiver farm.Address
}

type settings struct {
	RewardToken farm.Address
	DevAddr     farm.Address
	MintRewards bool
	Start       uint64
	BonusEnd    uint64
	End         uint64
}

// UserPosition is the stake of one user in one pool.
type UserPosition struct {
	Amount           *uint256.Int
	RewardDebt       *uint256.Int
	LastDepositBlock uint64
}

type positionKey = solidity.PairKey[farm.Address, farm.Address]

// Master is a storage view of a reward master.
type Master struct {
	addr           farm.Address
	state          *state.State
	settings       *solidity.Raw[*settings]
	rewardPerBlock *solidity.Uint256
	lpFeeReceiver  *solidity.Address
	pools          *registry.Registry
	positions      *solidity.Mapping[positionKey, *UserPosition]
	owner          *access.Ownable
	guard          *access.Guard
}

// New creates a view of the master at addr.
func New(addr farm.Address, state *state.State) *Master {
	ctx := solidity.NewContext(addr, state)
	return &Master{
		addr:           addr,
		state:          state,
		settings:       solidity.NewRaw[*settings](ctx, slotSettings),
		rewardPerBlock: solidity.NewUint256(ctx, slotRewardPerBlock),
		lpFeeReceiver:  solidity.NewAddress(ctx, slotLPFeeReceiver),
		pools:          registry.New(ctx, "master"),
		positions:      solidity.NewMapping[positionKey, *UserPosition](ctx, slotPositions),
		owner:          access.NewOwnable(ctx),
		guard:          access.NewGuard(ctx),
	}
}

// Deploy creates a master at addr owned by the caller.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Master, error) {
	if cfg.RewardToken.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "master: zero reward token")
	}
	if !cfg.Schedule.Valid() {
		return nil, reverts.Newf(reverts.InvalidParameter, "master: invalid schedule %+v", cfg.Schedule)
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	m := New(addr, env.State())
	if err := m.settings.Set(&settings{
		RewardToken: cfg.RewardToken,
		DevAddr:     cfg.DevAddr,
		MintRewards: cfg.MintRewards,
		Start:       cfg.Schedule.Start,
		BonusEnd:    cfg.Schedule.BonusEnd,
		End:         cfg.Schedule.End,
	}); err != nil {
		return nil, err
	}
	if cfg.RewardPerBlock != nil {
		m.rewardPerBlock.Set(cfg.RewardPerBlock)
	}
	m.lpFeeReceiver.Set(cfg.LPFeeReceiver)
	if err := m.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	logger.Debug("deployed master", "address", addr, "rewardToken", cfg.RewardToken, "rewardPerBlock", cfg.RewardPerBlock, "schedule", cfg.Schedule)
	return m, nil
}

// Getters

func (m *Master) Address() farm.Address { return m.addr }

func (m *Master) Owner() (farm.Address, error) { return m.owner.Owner() }

func (m *Master) TransferOwnership(env *xenv.Environment, newOwner farm.Address) error {
	return m.owner.TransferOwnership(env, newOwner)
}

func (m *Master) RewardToken() (farm.Address, error) {
	s, err := m.settings.Get()
	if err != nil {
		return farm.Address{}, err
	}
	return s.RewardToken, nil
}

func (m *Master) Schedule() (accumulator.Schedule, error) {
	s, err := m.settings.Get()
	if err != nil {
		return accumulator.Schedule{}, err
	}
	return accumulator.Schedule{Start: s.Start, BonusEnd: s.BonusEnd, End: s.End}, nil
}

func (m *Master) RewardPerBlock() (*uint256.Int, error) { return m.rewardPerBlock.Get() }

func (m *Master) LPFeeReceiver() (farm.Address, error) { return m.lpFeeReceiver.Get() }

func (m *Master) TotalAllocPoint() (uint64, error) { return m.pools.TotalAllocPoint() }

func (m *Master) PoolLength() (uint64, error) { return m.pools.Len() }

func (m *Master) PoolInfo(pid uint64) (*registry.PoolRecord, error) { return m.pools.Get(pid) }

// PoolOf returns the id of the pool staking lpToken.
func (m *Master) PoolOf(lpToken farm.Address) (uint64, bool, error) { return m.pools.IndexOf(lpToken) }

// UserInfo returns the position of user in pool pid.
func (m *Master) UserInfo(pid uint64, user farm.Address) (*UserPosition, error) {
	rec, err := m.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	return m.position(rec.LPToken, user)
}

func (m *Master) position(lpToken, user farm.Address) (*UserPosition, error) {
	pos, err := m.positions.Get(solidity.NewPairKey(lpToken, user))
	if err != nil {
		return nil, err
	}
	if pos.Amount == nil {
		pos.Amount = new(uint256.Int)
	}
	if pos.RewardDebt == nil {
		pos.RewardDebt = new(uint256.Int)
	}
	return pos, nil
}

func (m *Master) putPosition(lpToken, user farm.Address, pos *UserPosition) error {
	key := solidity.NewPairKey(lpToken, user)
	if pos.Amount.IsZero() && pos.RewardDebt.IsZero() {
		m.positions.Delete(key)
		return nil
	}
	return m.positions.Set(key, pos)
}

func (m *Master) emission() (*accumulator.Emission, *settings, error) {
	s, err := m.settings.Get()
	if err != nil {
		return nil, nil, err
	}
	rpb, err := m.rewardPerBlock.Get()
	if err != nil {
		return nil, nil, err
	}
	total, err := m.pools.TotalAllocPoint()
	if err != nil {
		return nil, nil, err
	}
	return &accumulator.Emission{
		RewardPerBlock:  rpb,
		TotalAllocPoint: total,
		Schedule:        accumulator.Schedule{Start: s.Start, BonusEnd: s.BonusEnd, End: s.End},
	}, s, nil
}

// Multiplier returns the reward blocks between from and to.
func (m *Master) Multiplier(from, to uint64) (uint64, error) {
	sched, err := m.Schedule()
	if err != nil {
		return 0, err
	}
	return sched.Multiplier(from, to), nil
}

// PendingOf projects the reward user could harvest from pool pid at blockNow.
func (m *Master) PendingOf(pid uint64, user farm.Address, blockNow uint64) (*uint256.Int, error) {
	rec, err := m.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	pos, err := m.position(rec.LPToken, user)
	if err != nil {
		return nil, err
	}
	e, _, err := m.emission()
	if err != nil {
		return nil, err
	}
	acc := e.Project(rec.Accounting(), rec.TotalStaked, blockNow)
	return accumulator.Pending(pos.Amount, acc, pos.RewardDebt)
}

// Settlement

// Update brings pool pid up to the current block.
func (m *Master) Update(env *xenv.Environment, pid uint64) error {
	_, err := m.updatePool(env, pid)
	return err
}

func (m *Master) updatePool(env *xenv.Environment, pid uint64) (*registry.PoolRecord, error) {
	rec, err := m.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	blockNow := env.BlockNumber()
	if blockNow <= rec.LastRewardBlock {
		return rec, nil
	}
	e, s, err := m.emission()
	if err != nil {
		return nil, err
	}
	pool := rec.Accounting()
	reward := e.Update(pool, rec.TotalStaked, blockNow)
	rec.Apply(pool)
	if err := m.pools.Put(pid, rec); err != nil {
		return nil, err
	}
	if s.MintRewards && !reward.IsZero() {
		rt := token.New(s.RewardToken, m.state)
		self := env.As(m.addr)
		if !s.DevAddr.IsZero() {
			if err := rt.Mint(self, s.DevAddr, new(uint256.Int).Div(reward, devShareDivisor)); err != nil {
				return nil, err
			}
		}
		if err := rt.Mint(self, m.addr, reward); err != nil {
			return nil, err
		}
	}
	logger.Trace("pool updated", "pid", pid, "block", blockNow, "reward", reward, "acc", rec.AccRewardPerShare)
	return rec, nil
}

// MassUpdatePools updates every pool.
func (m *Master) MassUpdatePools(env *xenv.Environment) error {
	n, err := m.pools.Len()
	if err != nil {
		return err
	}
	for pid := range n {
		if _, err := m.updatePool(env, pid); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePool brings pool pid up to the current block.
func (m *Master) UpdatePool(env *xenv.Environment, pid uint64) error {
	return m.guard.Do(func() error {
		return m.Update(env, pid)
	})
}

// Settle harvests the caller's pending reward of pool pid.
func (m *Master) Settle(env *xenv.Environment, pid uint64) (paid *uint256.Int, err error) {
	err = m.guard.Do(func() error {
		paid, err = m.deposit(env, pid, new(uint256.Int))
		return err
	})
	return
}

// rewardReserve is the part of the master's reward token balance not staked in a pool.
func (m *Master) rewardReserve(rt farm.Address) (*uint256.Int, error) {
	balance, err := token.New(rt, m.state).BalanceOf(m.addr)
	if err != nil {
		return nil, err
	}
	pid, ok, err := m.pools.IndexOf(rt)
	if err != nil || !ok {
		return balance, err
	}
	rec, err := m.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	if balance.Lt(rec.TotalStaked) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(balance, rec.TotalStaked), nil
}

// payReward sends amount to the harvester, capped at the reward reserve so that
// rounding in the accumulator can never fail a harvest. It returns the amount paid.
func (m *Master) payReward(env *xenv.Environment, to farm.Address, pid uint64, amount *uint256.Int) (*uint256.Int, error) {
	if amount.IsZero() {
		return amount, nil
	}
	rt, err := m.RewardToken()
	if err != nil {
		return nil, err
	}
	reserve, err := m.rewardReserve(rt)
	if err != nil {
		return nil, err
	}
	paid := amount
	if reserve.Lt(amount) {
		logger.Debug("reward capped", "pid", pid, "user", to, "pending", amount, "reserve", reserve)
		paid = reserve
	}
	if paid.IsZero() {
		return paid, nil
	}
	if err := token.New(rt, m.state).Transfer(env.As(m.addr), to, paid); err != nil {
		return nil, err
	}
	metricHarvestAmount().AddWithLabel(metrics.Amount(paid), map[string]string{"contract": Kind})
	if err := env.Log(eventHarvest, m.addr, []farm.Bytes32{xenv.AddressTopic(to), xenv.Uint64Topic(pid)}, paid); err != nil {
		return nil, err
	}
	return paid, nil
}
