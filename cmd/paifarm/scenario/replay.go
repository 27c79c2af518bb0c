// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/xenv"
)

var logger = log.WithContext("pkg", "scenario")

var maxAllowance = new(uint256.Int).SetAllOne()

type opFunc func(r *Replayer, env *xenv.Environment, s *Step) error

// ops maps op names to their transaction bodies. The empty op only moves the clock.
var ops = map[string]opFunc{
	"":                  nil,
	"token":             opToken,
	"mint":              opMint,
	"transfer":          opTransfer,
	"approve":           opApprove,
	"pair":              opPair,
	"add":               opAdd,
	"set":               opSet,
	"remove":            opRemove,
	"rewardPerBlock":    opRewardPerBlock,
	"deposit":           opDeposit,
	"withdraw":          opWithdraw,
	"harvest":           opHarvest,
	"emergencyWithdraw": opEmergencyWithdraw,
	"enter":             opEnter,
	"leave":             opLeave,
	"addVotePool":       opAddVotePool,
	"delVotePool":       opDelVotePool,
	"voteWeights":       opVoteWeights,
	"sqrt":              opSqrt,
}

// Replayer runs scenarios against a runtime. Names bound by earlier steps
// stay resolvable by later ones, across scenarios.
type Replayer struct {
	rt     *runtime.Runtime
	names  map[string]farm.Address
	staged map[string]farm.Address
}

func NewReplayer(rt *runtime.Runtime) *Replayer {
	return &Replayer{
		rt: rt,
		names: map[string]farm.Address{
			"PAI":  builtin.PAI.Address,
			"xPAI": builtin.Bar.Address,
		},
		staged: make(map[string]farm.Address),
	}
}

// Address resolves an account, token or pair name.
func (r *Replayer) Address(name string) (farm.Address, error) {
	if name == "" {
		return farm.Address{}, errors.New("missing name")
	}
	if strings.HasPrefix(name, "0x") {
		addr, err := farm.ParseAddress(name)
		if err != nil {
			return farm.Address{}, errors.WithMessagef(err, "address %q", name)
		}
		return *addr, nil
	}
	if addr, ok := r.staged[name]; ok {
		return addr, nil
	}
	if addr, ok := r.names[name]; ok {
		return addr, nil
	}
	return farm.NameToAddress(name), nil
}

// optional resolves name, or the zero address when name is empty.
func (r *Replayer) optional(name string) (farm.Address, error) {
	if name == "" {
		return farm.Address{}, nil
	}
	return r.Address(name)
}

// bind names addr once the running step commits.
func (r *Replayer) bind(name string, addr farm.Address) {
	if name != "" {
		r.staged[name] = addr
	}
}

func (r *Replayer) settle(committed bool) {
	if committed {
		maps.Copy(r.names, r.staged)
	}
	clear(r.staged)
}

// Replay deploys the suite when the scenario has one, then runs every step.
func (r *Replayer) Replay(ctx context.Context, sc *Scenario) error {
	if sc.Suite != nil {
		if err := r.rt.SetBlock(sc.Start); err != nil {
			return err
		}
		if err := r.deploy(sc); err != nil {
			return err
		}
	}
	reverted := 0
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := r.step(step)
		if err != nil {
			return errors.WithMessagef(err, "step %d (%s)", i, step.Op)
		}
		if !ok {
			reverted++
		}
	}
	logger.Info("scenario replayed", "steps", len(sc.Steps), "reverted", reverted, "block", r.rt.BlockNumber())
	return nil
}

func (r *Replayer) deploy(sc *Scenario) error {
	owner, err := r.Address(sc.Owner)
	if err != nil {
		return err
	}
	cfg := builtin.SuiteConfig{
		RewardPerBlock: sc.Suite.RewardPerBlock.Int(),
		Schedule:       sc.Suite.schedule(sc.Start),
		LockAllocPoint: sc.Suite.LockAllocPoint,
		VotePools:      sc.Suite.VotePools,
	}
	if cfg.DevAddr, err = r.optional(sc.Suite.Dev); err != nil {
		return err
	}
	if cfg.LPFeeReceiver, err = r.optional(sc.Suite.LPFeeReceiver); err != nil {
		return err
	}
	if cfg.LockReceiver, err = r.optional(sc.Suite.LockReceiver); err != nil {
		return err
	}
	_, err = r.rt.Execute(owner, "deploy", func(env *xenv.Environment) error {
		if err := builtin.Deploy(env, cfg); err != nil {
			return err
		}
		// the genesis allocation, minted on behalf of the master
		pai := token.New(builtin.PAI.Address, env.State())
		for _, name := range slices.Sorted(maps.Keys(sc.Suite.Alloc)) {
			to, err := r.Address(name)
			if err != nil {
				return err
			}
			if err := pai.Mint(env.As(builtin.Master.Address), to, sc.Suite.Alloc[name].Int()); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.WithMessage(err, "deploy suite")
}

// step moves the clock and runs the step, reporting whether it committed.
// A revert is an error only when not expected.
func (r *Replayer) step(s *Step) (bool, error) {
	if s.Block > 0 {
		if err := r.rt.SetBlock(s.Block); err != nil {
			return false, err
		}
	}
	if s.Mine > 0 {
		r.rt.Mine(s.Mine)
	}
	fn := ops[s.Op]
	if fn == nil {
		return true, nil
	}
	from, err := r.Address(s.From)
	if err != nil {
		return false, err
	}
	_, err = r.rt.Execute(from, s.Op, func(env *xenv.Environment) error {
		return fn(r, env, s)
	})
	r.settle(err == nil)
	switch {
	case err == nil && s.Revert:
		return true, errors.New("committed, a revert was expected")
	case err == nil:
		return true, nil
	case reverts.IsRevertErr(err) && s.Revert:
		logger.Debug("expected revert", "op", s.Op, "from", s.From, "reason", err)
		return false, nil
	}
	return false, err
}

func (r *Replayer) token(env *xenv.Environment, name string) (*token.Token, error) {
	addr, err := r.Address(name)
	if err != nil {
		return nil, err
	}
	return token.New(addr, env.State()), nil
}

func opToken(r *Replayer, env *xenv.Environment, s *Step) error {
	addr := farm.NameToAddress(s.Token)
	if _, err := token.Deploy(env, addr, token.Metadata{Name: s.Token, Symbol: s.Token, Decimals: 18}); err != nil {
		return err
	}
	r.bind(s.Token, addr)
	return nil
}

func opMint(r *Replayer, env *xenv.Environment, s *Step) error {
	tok, err := r.token(env, s.Token)
	if err != nil {
		return err
	}
	to, err := r.Address(s.To)
	if err != nil {
		return err
	}
	return tok.Mint(env, to, s.Amount.Int())
}

func opTransfer(r *Replayer, env *xenv.Environment, s *Step) error {
	tok, err := r.token(env, s.Token)
	if err != nil {
		return err
	}
	to, err := r.Address(s.To)
	if err != nil {
		return err
	}
	return tok.Transfer(env, to, s.Amount.Int())
}

// opApprove grants an unlimited allowance unless an amount is given.
func opApprove(r *Replayer, env *xenv.Environment, s *Step) error {
	tok, err := r.token(env, s.Token)
	if err != nil {
		return err
	}
	spender, err := r.Address(s.To)
	if err != nil {
		return err
	}
	amount := maxAllowance
	if s.Amount.IsSet() {
		amount = s.Amount.Int()
	}
	return tok.Approve(env, spender, amount)
}

// opPair creates the pair of two tokens at the farm factory. With amounts,
// the sender seeds it and receives the shares.
func opPair(r *Replayer, env *xenv.Environment, s *Step) error {
	if len(s.Tokens) != 2 {
		return errors.New("pair needs two tokens")
	}
	if len(s.Amounts) != 0 && len(s.Amounts) != 2 {
		return errors.New("pair needs two amounts or none")
	}
	a, err := r.token(env, s.Tokens[0])
	if err != nil {
		return err
	}
	b, err := r.token(env, s.Tokens[1])
	if err != nil {
		return err
	}
	p, err := builtin.Factory.WithState(env.State()).CreatePair(env, a.Address(), b.Address())
	if err != nil {
		return err
	}
	r.bind(s.As, p.Address())
	if len(s.Amounts) == 0 {
		return nil
	}
	if err := a.Transfer(env, p.Address(), s.Amounts[0].Int()); err != nil {
		return err
	}
	if err := b.Transfer(env, p.Address(), s.Amounts[1].Int()); err != nil {
		return err
	}
	_, err = p.Mint(env, env.Caller())
	return err
}

func opAdd(r *Replayer, env *xenv.Environment, s *Step) error {
	lp, err := r.Address(s.LP)
	if err != nil {
		return err
	}
	pid, err := builtin.Master.WithState(env.State()).Add(env, s.Alloc, lp, true)
	if err != nil {
		return err
	}
	logger.Debug("pool added", "pid", pid, "lp", lp)
	return nil
}

func opSet(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).Set(env, s.Pool, s.Alloc, true)
}

func opRemove(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).Remove(env, s.Pool)
}

func opRewardPerBlock(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).SetRewardPerBlock(env, s.Amount.Int())
}

// opDeposit approves the master for the amount, then stakes it.
func opDeposit(_ *Replayer, env *xenv.Environment, s *Step) error {
	m := builtin.Master.WithState(env.State())
	rec, err := m.PoolInfo(s.Pool)
	if err != nil {
		return err
	}
	if err := token.New(rec.LPToken, env.State()).Approve(env, m.Address(), s.Amount.Int()); err != nil {
		return err
	}
	return m.Deposit(env, s.Pool, s.Amount.Int())
}

func opWithdraw(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).Withdraw(env, s.Pool, s.Amount.Int())
}

func opHarvest(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).Deposit(env, s.Pool, new(uint256.Int))
}

func opEmergencyWithdraw(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Master.WithState(env.State()).EmergencyWithdraw(env, s.Pool)
}

func opEnter(_ *Replayer, env *xenv.Environment, s *Step) error {
	if err := builtin.PAI.WithState(env.State()).Approve(env, builtin.Bar.Address, s.Amount.Int()); err != nil {
		return err
	}
	_, err := builtin.Bar.WithState(env.State()).Enter(env, s.Amount.Int())
	return err
}

func opLeave(_ *Replayer, env *xenv.Environment, s *Step) error {
	_, err := builtin.Bar.WithState(env.State()).Leave(env, s.Amount.Int())
	return err
}

func opAddVotePool(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Voter.WithState(env.State()).AddVotePool(env, s.Pool)
}

func opDelVotePool(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Voter.WithState(env.State()).DelVotePool(env, s.Pool)
}

// opVoteWeights takes the pool, wallet and derivative weights in that order.
func opVoteWeights(_ *Replayer, env *xenv.Environment, s *Step) error {
	if len(s.Weights) != 3 {
		return errors.New("voteWeights needs pool, wallet and derivative weights")
	}
	return builtin.Voter.WithState(env.State()).SetWeights(env, s.Weights[0], s.Weights[1], s.Weights[2])
}

func opSqrt(_ *Replayer, env *xenv.Environment, s *Step) error {
	return builtin.Voter.WithState(env.State()).SetSqrtEnabled(env, s.Enabled)
}
