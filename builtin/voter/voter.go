// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package voter derives voting power from the PAI a holder keeps in the wallet,
// in master vote pools and in the bar.
//
// Power is
//
//	walletWeight*wallet + poolWeight*Σ pooled + derivativeWeight*bar
//
// where pooled is the PAI side of the LP staked in each vote pool and bar is the PAI
// redeemable for the holder's bar shares. With sqrt enabled the floor square root of
// the sum is reported.
package voter

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/bar"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "voter"

const (
	DefaultPoolWeight       uint64 = 2
	DefaultWalletWeight     uint64 = 1
	DefaultDerivativeWeight uint64 = 1
)

var (
	logger = log.WithContext("pkg", "voter")

	ABI                    = abi.MustNew(gen.MustABI("voter"))
	eventVotePoolAdded     = ABI.MustEventByName("VotePoolAdded")
	eventVotePoolRemoved   = ABI.MustEventByName("VotePoolRemoved")
	eventVoteWeightUpdated = ABI.MustEventByName("VoteWeightUpdated")
	eventSqrtToggled       = ABI.MustEventByName("SqrtToggled")

	slotSettings  = solidity.Slot("voter.settings")
	slotWeights   = solidity.Slot("voter.weights")
	slotVotePools = solidity.Slot("voter.votePools")
)

// Config are the deployment parameters of a voter.
type Config struct {
	Master farm.Address
	// Bar is optional. Without it the derivative term is always zero.
	Bar       farm.Address
	VotePools []uint64
}

type settings struct {
	Master farm.Address
	Bar    farm.Address
	Native farm.Address
}

// Weights is the vote weight configuration.
type Weights struct {
	PoolWeight       uint64
	WalletWeight     uint64
	DerivativeWeight uint64
	SqrtEnabled      bool
}

// DefaultWeights is the configuration of a freshly deployed voter.
func DefaultWeights() Weights {
	return Weights{
		PoolWeight:       DefaultPoolWeight,
		WalletWeight:     DefaultWalletWeight,
		DerivativeWeight: DefaultDerivativeWeight,
		SqrtEnabled:      true,
	}
}

type Voter struct {
	addr      farm.Address
	state     *state.State
	settings  *solidity.Raw[*settings]
	weights   *solidity.Raw[*Weights]
	votePools *solidity.Array[uint64]
	owner     *access.Ownable
}

func New(addr farm.Address, state *state.State) *Voter {
	ctx := solidity.NewContext(addr, state)
	return &Voter{
		addr:      addr,
		state:     state,
		settings:  solidity.NewRaw[*settings](ctx, slotSettings),
		weights:   solidity.NewRaw[*Weights](ctx, slotWeights),
		votePools: solidity.NewArray[uint64](ctx, slotVotePools),
		owner:     access.NewOwnable(ctx),
	}
}

// Deploy creates a voter at addr owned by the caller. The voted token is the
// reward token of the master.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Voter, error) {
	if cfg.Master.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "voter: zero master")
	}
	native, err := master.New(cfg.Master, env.State()).RewardToken()
	if err != nil {
		return nil, err
	}
	if native.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "voter: master has no reward token")
	}
	if !cfg.Bar.IsZero() {
		underlying, err := bar.New(cfg.Bar, env.State()).Underlying()
		if err != nil {
			return nil, err
		}
		if underlying != native {
			return nil, reverts.Newf(reverts.InvalidParameter, "voter: bar underlying %v is not %v", underlying, native)
		}
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	v := New(addr, env.State())
	if err := v.settings.Set(&settings{Master: cfg.Master, Bar: cfg.Bar, Native: native}); err != nil {
		return nil, err
	}
	w := DefaultWeights()
	if err := v.weights.Set(&w); err != nil {
		return nil, err
	}
	if err := v.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	for _, pid := range cfg.VotePools {
		if err := v.addVotePool(env, pid); err != nil {
			return nil, err
		}
	}
	logger.Debug("deployed voter", "address", addr, "master", cfg.Master, "bar", cfg.Bar, "votePools", cfg.VotePools)
	return v, nil
}

// Getters

func (v *Voter) Address() farm.Address { return v.addr }

func (v *Voter) Owner() (farm.Address, error) { return v.owner.Owner() }

func (v *Voter) Weights() (Weights, error) {
	w, err := v.weights.Get()
	if err != nil {
		return Weights{}, err
	}
	return *w, nil
}

// VotePools returns the vote pool ids in storage order.
func (v *Voter) VotePools() ([]uint64, error) {
	n, err := v.votePools.Len()
	if err != nil {
		return nil, err
	}
	pids := make([]uint64, 0, n)
	for i := range n {
		pid, err := v.votePools.Get(i)
		if err != nil {
			return nil, err
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func (v *Voter) indexOf(pid uint64) (uint64, bool, error) {
	pids, err := v.VotePools()
	if err != nil {
		return 0, false, err
	}
	for i, p := range pids {
		if p == pid {
			return uint64(i), true, nil
		}
	}
	return 0, false, nil
}

// BalanceOf is the voting power of user.
func (v *Voter) BalanceOf(user farm.Address) (*uint256.Int, error) {
	s, err := v.settings.Get()
	if err != nil {
		return nil, err
	}
	wallet, err := token.New(s.Native, v.state).BalanceOf(user)
	if err != nil {
		return nil, err
	}
	pooled, err := v.pooled(s, func(m *master.Master, pid uint64) (*uint256.Int, error) {
		pos, err := m.UserInfo(pid, user)
		if err != nil {
			return nil, err
		}
		return pos.Amount, nil
	})
	if err != nil {
		return nil, err
	}
	derivative := new(uint256.Int)
	if !s.Bar.IsZero() {
		b := bar.New(s.Bar, v.state)
		shares, err := b.BalanceOf(user)
		if err != nil {
			return nil, err
		}
		if derivative, err = b.UnderlyingOf(shares); err != nil {
			return nil, err
		}
	}
	return v.power(wallet, pooled, derivative)
}

// TotalSupply is the voting power of the whole supply: every PAI in existence,
// the PAI side of all LP staked in vote pools and the bar reserve.
func (v *Voter) TotalSupply() (*uint256.Int, error) {
	s, err := v.settings.Get()
	if err != nil {
		return nil, err
	}
	supply, err := token.New(s.Native, v.state).TotalSupply()
	if err != nil {
		return nil, err
	}
	pooled, err := v.pooled(s, func(m *master.Master, pid uint64) (*uint256.Int, error) {
		rec, err := m.PoolInfo(pid)
		if err != nil {
			return nil, err
		}
		return rec.TotalStaked, nil
	})
	if err != nil {
		return nil, err
	}
	reserve := new(uint256.Int)
	if !s.Bar.IsZero() {
		if reserve, err = bar.New(s.Bar, v.state).Reserve(); err != nil {
			return nil, err
		}
	}
	return v.power(supply, pooled, reserve)
}

// pooled sums the PAI side of the LP amounts staked across the vote pools.
// Pools that do not exist yet or do not stake a PAI pair count nothing.
func (v *Voter) pooled(s *settings, staked func(m *master.Master, pid uint64) (*uint256.Int, error)) (*uint256.Int, error) {
	m := master.New(s.Master, v.state)
	n, err := m.PoolLength()
	if err != nil {
		return nil, err
	}
	pids, err := v.VotePools()
	if err != nil {
		return nil, err
	}
	sum := new(uint256.Int)
	for _, pid := range pids {
		if pid >= n {
			continue
		}
		rec, err := m.PoolInfo(pid)
		if err != nil {
			return nil, err
		}
		lp, reserve, err := v.nativeReserve(s, rec.LPToken)
		if err != nil {
			return nil, err
		}
		if lp == nil {
			continue
		}
		lpSupply, err := lp.TotalSupply()
		if err != nil {
			return nil, err
		}
		if lpSupply.IsZero() {
			continue
		}
		amount, err := staked(m, pid)
		if err != nil {
			return nil, err
		}
		part := new(uint256.Int).Mul(amount, reserve)
		sum.Add(sum, part.Div(part, lpSupply))
	}
	return sum, nil
}

// nativeReserve returns the pair at lpToken with its PAI reserve, or nil if lpToken
// is not a pair holding PAI.
func (v *Voter) nativeReserve(s *settings, lpToken farm.Address) (*pair.Pair, *uint256.Int, error) {
	kind, err := solidity.KindAt(v.state, lpToken)
	if err != nil {
		return nil, nil, err
	}
	if kind != pair.Kind {
		return nil, nil, nil
	}
	lp := pair.New(lpToken, v.state)
	t0, err := lp.Token0()
	if err != nil {
		return nil, nil, err
	}
	t1, err := lp.Token1()
	if err != nil {
		return nil, nil, err
	}
	r0, r1, err := lp.GetReserves()
	if err != nil {
		return nil, nil, err
	}
	switch s.Native {
	case t0:
		return lp, r0, nil
	case t1:
		return lp, r1, nil
	}
	return nil, nil, nil
}

func (v *Voter) power(wallet, pooled, derivative *uint256.Int) (*uint256.Int, error) {
	w, err := v.weights.Get()
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int).Mul(wallet, uint256.NewInt(w.WalletWeight))
	total.Add(total, new(uint256.Int).Mul(pooled, uint256.NewInt(w.PoolWeight)))
	total.Add(total, new(uint256.Int).Mul(derivative, uint256.NewInt(w.DerivativeWeight)))
	if w.SqrtEnabled {
		total.Sqrt(total)
	}
	return total, nil
}

// Mutations

// AddVotePool counts master pool pid towards voting power. Only the owner may call it.
func (v *Voter) AddVotePool(env *xenv.Environment, pid uint64) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	return v.addVotePool(env, pid)
}

func (v *Voter) addVotePool(env *xenv.Environment, pid uint64) error {
	_, found, err := v.indexOf(pid)
	if err != nil {
		return err
	}
	if found {
		return reverts.Newf(reverts.InvalidParameter, "voter: pool %d already votes", pid)
	}
	if _, err := v.votePools.Push(pid); err != nil {
		return err
	}
	logger.Info("vote pool added", "voter", v.addr, "pid", pid)
	return env.Log(eventVotePoolAdded, v.addr, []farm.Bytes32{xenv.Uint64Topic(pid)})
}

// DelVotePool stops counting master pool pid. The last vote pool takes its place.
// Only the owner may call it.
func (v *Voter) DelVotePool(env *xenv.Environment, pid uint64) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	i, found, err := v.indexOf(pid)
	if err != nil {
		return err
	}
	if !found {
		return reverts.Newf(reverts.InvalidParameter, "voter: pool %d does not vote", pid)
	}
	n, err := v.votePools.Len()
	if err != nil {
		return err
	}
	if last := n - 1; i != last {
		tail, err := v.votePools.Get(last)
		if err != nil {
			return err
		}
		if err := v.votePools.Set(i, tail); err != nil {
			return err
		}
	}
	if err := v.votePools.Pop(); err != nil {
		return err
	}
	logger.Info("vote pool removed", "voter", v.addr, "pid", pid)
	return env.Log(eventVotePoolRemoved, v.addr, []farm.Bytes32{xenv.Uint64Topic(pid)})
}

// SetWeights changes the weight of each term. Only the owner may call it.
func (v *Voter) SetWeights(env *xenv.Environment, poolWeight, walletWeight, derivativeWeight uint64) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	w, err := v.weights.Get()
	if err != nil {
		return err
	}
	w.PoolWeight, w.WalletWeight, w.DerivativeWeight = poolWeight, walletWeight, derivativeWeight
	if err := v.weights.Set(w); err != nil {
		return err
	}
	logger.Info("vote weights updated", "voter", v.addr, "pool", poolWeight, "wallet", walletWeight, "derivative", derivativeWeight)
	return env.Log(eventVoteWeightUpdated, v.addr, nil, poolWeight, walletWeight, derivativeWeight)
}

// SetSqrtEnabled toggles square root dampening. Only the owner may call it.
func (v *Voter) SetSqrtEnabled(env *xenv.Environment, enabled bool) error {
	if err := v.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	w, err := v.weights.Get()
	if err != nil {
		return err
	}
	w.SqrtEnabled = enabled
	if err := v.weights.Set(w); err != nil {
		return err
	}
	logger.Info("sqrt toggled", "voter", v.addr, "enabled", enabled)
	return env.Log(eventSqrtToggled, v.addr, nil, enabled)
}
