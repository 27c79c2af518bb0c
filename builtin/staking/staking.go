// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements a block based staking rewards contract. A distributor
// funds a reward period and the reward is spread evenly over its blocks among the stakers.
package staking

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "staking"

var (
	logger = log.WithContext("pkg", "staking")

	ABI              = abi.MustNew(gen.MustABI("staking"))
	eventStaked      = ABI.MustEventByName("Staked")
	eventWithdrawn   = ABI.MustEventByName("Withdrawn")
	eventRewardPaid  = ABI.MustEventByName("RewardPaid")
	eventRewardAdded = ABI.MustEventByName("RewardAdded")

	slotSettings    = solidity.Slot("staking.settings")
	slotRewardState = solidity.Slot("staking.rewardState")
	slotTotalSupply = solidity.Slot("staking.totalSupply")
	slotBalances    = solidity.Slot("staking.balances")
	slotAccounts    = solidity.Slot("staking.accounts")
)

// Config are the deployment parameters of a staking contract.
type Config struct {
	RewardToken  farm.Address
	StakingToken farm.Address
	// Distribution may fund reward periods. Defaults to the deployer.
	Distribution farm.Address
}

type rewardState struct {
	RewardRate      *uint256.Int
	PeriodFinish    uint64
	LastUpdateBlock uint64
	RewardPerToken  *uint256.Int
}

type account struct {
	RewardPerTokenPaid *uint256.Int
	Rewards            *uint256.Int
}

type Staking struct {
	addr        farm.Address
	state       *state.State
	ctx         *solidity.Context
	settings    *solidity.Raw[*Config]
	rewardState *solidity.Raw[*rewardState]
	totalSupply *solidity.Uint256
	balances    *solidity.Mapping[farm.Address, *uint256.Int]
	accounts    *solidity.Mapping[farm.Address, *account]
	owner       *access.Ownable
	guard       *access.Guard
}

func New(addr farm.Address, state *state.State) *Staking {
	ctx := solidity.NewContext(addr, state)
	return &Staking{
		addr:        addr,
		state:       state,
		ctx:         ctx,
		settings:    solidity.NewRaw[*Config](ctx, slotSettings),
		rewardState: solidity.NewRaw[*rewardState](ctx, slotRewardState),
		totalSupply: solidity.NewUint256(ctx, slotTotalSupply),
		balances:    solidity.NewMapping[farm.Address, *uint256.Int](ctx, slotBalances),
		accounts:    solidity.NewMapping[farm.Address, *account](ctx, slotAccounts),
		owner:       access.NewOwnable(ctx),
		guard:       access.NewGuard(ctx),
	}
}

// Deploy creates a staking contract at addr owned by the caller.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Staking, error) {
	if cfg.RewardToken.IsZero() || cfg.StakingToken.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "staking: zero token address")
	}
	if cfg.Distribution.IsZero() {
		cfg.Distribution = env.Caller()
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	s := New(addr, env.State())
	if err := s.settings.Set(&cfg); err != nil {
		return nil, err
	}
	if err := s.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	logger.Debug("deployed staking", "address", addr, "rewardToken", cfg.RewardToken, "stakingToken", cfg.StakingToken)
	return s, nil
}

// Getters

func (s *Staking) Address() farm.Address { return s.addr }

func (s *Staking) Config() (*Config, error) { return s.settings.Get() }

func (s *Staking) TotalSupply() (*uint256.Int, error) { return s.totalSupply.Get() }

func (s *Staking) BalanceOf(user farm.Address) (*uint256.Int, error) { return s.balances.Get(user) }

func (s *Staking) Owner() (farm.Address, error) { return s.owner.Owner() }

func rewardsDuration() *solidity.ConfigVariable {
	return solidity.NewConfigVariable("staking-rewards-duration", farm.DefaultRewardsDuration)
}

// RewardsDuration is the length of a reward period in blocks.
func (s *Staking) RewardsDuration() uint64 {
	d := rewardsDuration()
	d.Override(s.ctx)
	return d.Get()
}

func (s *Staking) RewardRate() (*uint256.Int, error) {
	rs, err := s.loadRewardState()
	if err != nil {
		return nil, err
	}
	return rs.RewardRate, nil
}

func (s *Staking) PeriodFinish() (uint64, error) {
	rs, err := s.loadRewardState()
	if err != nil {
		return 0, err
	}
	return rs.PeriodFinish, nil
}

// RewardForDuration is the reward of a whole period at the current rate.
func (s *Staking) RewardForDuration() (*uint256.Int, error) {
	rate, err := s.RewardRate()
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Mul(rate, uint256.NewInt(s.RewardsDuration())), nil
}

// RewardPerToken projects the accumulator at blockNow.
func (s *Staking) RewardPerToken(blockNow uint64) (*uint256.Int, error) {
	rs, err := s.loadRewardState()
	if err != nil {
		return nil, err
	}
	total, err := s.totalSupply.Get()
	if err != nil {
		return nil, err
	}
	return emission(rs).Project(pool(rs), total, blockNow), nil
}

// Earned projects the reward user could claim at blockNow.
func (s *Staking) Earned(user farm.Address, blockNow uint64) (*uint256.Int, error) {
	rpt, err := s.RewardPerToken(blockNow)
	if err != nil {
		return nil, err
	}
	return s.earned(user, rpt)
}

func (s *Staking) loadRewardState() (*rewardState, error) {
	rs, err := s.rewardState.Get()
	if err != nil {
		return nil, err
	}
	if rs.RewardRate == nil {
		rs.RewardRate = new(uint256.Int)
	}
	if rs.RewardPerToken == nil {
		rs.RewardPerToken = new(uint256.Int)
	}
	return rs, nil
}

func (s *Staking) loadAccount(user farm.Address) (*account, error) {
	acc, err := s.accounts.Get(user)
	if err != nil {
		return nil, err
	}
	if acc.RewardPerTokenPaid == nil {
		acc.RewardPerTokenPaid = new(uint256.Int)
	}
	if acc.Rewards == nil {
		acc.Rewards = new(uint256.Int)
	}
	return acc, nil
}

func (s *Staking) earned(user farm.Address, rpt *uint256.Int) (*uint256.Int, error) {
	balance, err := s.balances.Get(user)
	if err != nil {
		return nil, err
	}
	acc, err := s.loadAccount(user)
	if err != nil {
		return nil, err
	}
	pending, err := accumulator.Pending(balance, rpt, accumulator.Debt(balance, acc.RewardPerTokenPaid))
	if err != nil {
		return nil, err
	}
	return pending.Add(pending, acc.Rewards), nil
}

// emission spreads the rate evenly until the end of the period.
func emission(rs *rewardState) *accumulator.Emission {
	return &accumulator.Emission{
		RewardPerBlock:  rs.RewardRate,
		TotalAllocPoint: 1,
		Schedule:        accumulator.Schedule{End: rs.PeriodFinish},
	}
}

func pool(rs *rewardState) *accumulator.Pool {
	return &accumulator.Pool{
		AllocPoint:        1,
		LastRewardBlock:   rs.LastUpdateBlock,
		AccRewardPerShare: rs.RewardPerToken,
	}
}

// checkpoint brings the accumulator up to the current block and settles user, if any.
func (s *Staking) checkpoint(env *xenv.Environment, user farm.Address) (*rewardState, error) {
	rs, err := s.loadRewardState()
	if err != nil {
		return nil, err
	}
	total, err := s.totalSupply.Get()
	if err != nil {
		return nil, err
	}
	p := pool(rs)
	emission(rs).Update(p, total, env.BlockNumber())
	rs.LastUpdateBlock = p.LastRewardBlock
	rs.RewardPerToken = p.AccRewardPerShare
	if err := s.rewardState.Set(rs); err != nil {
		return nil, err
	}
	if user.IsZero() {
		return rs, nil
	}
	earned, err := s.earned(user, rs.RewardPerToken)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Set(user, &account{RewardPerTokenPaid: rs.RewardPerToken, Rewards: earned}); err != nil {
		return nil, err
	}
	return rs, nil
}

// Mutations

// Stake pulls amount staking tokens from the caller.
func (s *Staking) Stake(env *xenv.Environment, amount *uint256.Int) error {
	if amount.IsZero() {
		return reverts.New(reverts.ZeroAmount, "staking: cannot stake 0")
	}
	return s.guard.Do(func() error {
		user := env.Caller()
		if _, err := s.checkpoint(env, user); err != nil {
			return err
		}
		if err := s.totalSupply.Add(amount); err != nil {
			return err
		}
		balance, err := s.balances.Get(user)
		if err != nil {
			return err
		}
		if err := s.balances.Set(user, new(uint256.Int).Add(balance, amount)); err != nil {
			return err
		}
		cfg, err := s.settings.Get()
		if err != nil {
			return err
		}
		if err := token.New(cfg.StakingToken, s.state).TransferFrom(env.As(s.addr), user, s.addr, amount); err != nil {
			return err
		}
		logger.Debug("staked", "user", user, "amount", amount)
		return env.Log(eventStaked, s.addr, []farm.Bytes32{xenv.AddressTopic(user)}, amount)
	})
}

// Withdraw returns amount staking tokens to the caller.
func (s *Staking) Withdraw(env *xenv.Environment, amount *uint256.Int) error {
	if amount.IsZero() {
		return reverts.New(reverts.ZeroAmount, "staking: cannot withdraw 0")
	}
	return s.guard.Do(func() error {
		return s.withdraw(env, amount)
	})
}

func (s *Staking) withdraw(env *xenv.Environment, amount *uint256.Int) error {
	user := env.Caller()
	balance, err := s.balances.Get(user)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return reverts.Newf(reverts.InsufficientFunds, "staking: withdraw %v exceeds stake %v", amount.Dec(), balance.Dec())
	}
	if _, err := s.checkpoint(env, user); err != nil {
		return err
	}
	if err := s.totalSupply.Sub(amount); err != nil {
		return err
	}
	if err := s.balances.Set(user, new(uint256.Int).Sub(balance, amount)); err != nil {
		return err
	}
	cfg, err := s.settings.Get()
	if err != nil {
		return err
	}
	if err := token.New(cfg.StakingToken, s.state).Transfer(env.As(s.addr), user, amount); err != nil {
		return err
	}
	logger.Debug("withdrawn", "user", user, "amount", amount)
	return env.Log(eventWithdrawn, s.addr, []farm.Bytes32{xenv.AddressTopic(user)}, amount)
}

// GetReward pays the caller's earned reward and returns it.
func (s *Staking) GetReward(env *xenv.Environment) (paid *uint256.Int, err error) {
	err = s.guard.Do(func() error {
		paid, err = s.getReward(env)
		return err
	})
	return
}

func (s *Staking) getReward(env *xenv.Environment) (*uint256.Int, error) {
	user := env.Caller()
	if _, err := s.checkpoint(env, user); err != nil {
		return nil, err
	}
	acc, err := s.loadAccount(user)
	if err != nil {
		return nil, err
	}
	reward := acc.Rewards
	if reward.IsZero() {
		return reward, nil
	}
	acc.Rewards = new(uint256.Int)
	if err := s.accounts.Set(user, acc); err != nil {
		return nil, err
	}
	cfg, err := s.settings.Get()
	if err != nil {
		return nil, err
	}
	if err := token.New(cfg.RewardToken, s.state).Transfer(env.As(s.addr), user, reward); err != nil {
		return nil, err
	}
	logger.Debug("reward paid", "user", user, "reward", reward)
	if err := env.Log(eventRewardPaid, s.addr, []farm.Bytes32{xenv.AddressTopic(user)}, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// Exit withdraws the caller's whole stake and pays their reward.
func (s *Staking) Exit(env *xenv.Environment) error {
	return s.guard.Do(func() error {
		balance, err := s.balances.Get(env.Caller())
		if err != nil {
			return err
		}
		if !balance.IsZero() {
			if err := s.withdraw(env, balance); err != nil {
				return err
			}
		}
		_, err = s.getReward(env)
		return err
	})
}

// NotifyRewardAmount starts a reward period of reward tokens already sent to the
// contract. Reward left of a running period is rolled into the new one.
func (s *Staking) NotifyRewardAmount(env *xenv.Environment, reward *uint256.Int) error {
	cfg, err := s.settings.Get()
	if err != nil {
		return err
	}
	if env.Caller() != cfg.Distribution {
		return reverts.Newf(reverts.Unauthorized, "staking: caller %v is not the reward distribution", env.Caller())
	}
	return s.guard.Do(func() error {
		rs, err := s.checkpoint(env, farm.Address{})
		if err != nil {
			return err
		}
		blockNow := env.BlockNumber()
		duration := uint256.NewInt(s.RewardsDuration())
		total := new(uint256.Int).Set(reward)
		if blockNow < rs.PeriodFinish {
			leftover := new(uint256.Int).Mul(uint256.NewInt(rs.PeriodFinish-blockNow), rs.RewardRate)
			total.Add(total, leftover)
		}
		rate := total.Div(total, duration)

		balance, err := token.New(cfg.RewardToken, s.state).BalanceOf(s.addr)
		if err != nil {
			return err
		}
		if rate.Gt(new(uint256.Int).Div(balance, duration)) {
			return reverts.New(reverts.InsufficientFunds, "staking: provided reward too high")
		}
		rs.RewardRate = rate
		rs.LastUpdateBlock = blockNow
		rs.PeriodFinish = blockNow + duration.Uint64()
		if err := s.rewardState.Set(rs); err != nil {
			return err
		}
		logger.Info("reward added", "reward", reward, "rate", rate, "periodFinish", rs.PeriodFinish)
		return env.Log(eventRewardAdded, s.addr, nil, reward)
	})
}

// SetRewardsDuration changes the length of the next reward periods. Only the owner
// may call it, and not while a period is running.
func (s *Staking) SetRewardsDuration(env *xenv.Environment, blocks uint64) error {
	if err := s.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	if blocks == 0 {
		return reverts.New(reverts.InvalidParameter, "staking: zero rewards duration")
	}
	finish, err := s.PeriodFinish()
	if err != nil {
		return err
	}
	if env.BlockNumber() <= finish {
		return reverts.Newf(reverts.LockedPeriod, "staking: reward period runs until %d", finish)
	}
	rewardsDuration().Write(s.ctx, blocks)
	logger.Info("rewards duration updated", "blocks", blocks)
	return nil
}
