// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package migrator moves pair liquidity from an old factory to a new one on behalf of a single farm.
package migrator

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

const Kind = "migrator"

var (
	logger = log.WithContext("pkg", "migrator")

	ABI                    = abi.MustNew(gen.MustABI("migrator"))
	eventLiquidityMigrated = ABI.MustEventByName("LiquidityMigrated")

	slotConfig = solidity.Slot("migrator.config")
)

// Config binds a migrator to the farm allowed to use it and the two factories.
type Config struct {
	Chef           farm.Address
	OldFactory     farm.Address
	Factory        farm.Address
	NotBeforeBlock uint64
}

type Migrator struct {
	addr   farm.Address
	state  *state.State
	config *solidity.Raw[*Config]
}

func New(addr farm.Address, state *state.State) *Migrator {
	return &Migrator{
		addr:   addr,
		state:  state,
		config: solidity.NewRaw[*Config](solidity.NewContext(addr, state), slotConfig),
	}
}

// Deploy creates a migrator at addr.
func Deploy(env *xenv.Environment, addr farm.Address, cfg Config) (*Migrator, error) {
	if cfg.Chef.IsZero() || cfg.OldFactory.IsZero() || cfg.Factory.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "migrator: zero address in config")
	}
	if cfg.OldFactory == cfg.Factory {
		return nil, reverts.New(reverts.InvalidParameter, "migrator: identical factories")
	}
	if err := solidity.Claim(env.State(), addr, Kind); err != nil {
		return nil, err
	}
	m := New(addr, env.State())
	if err := m.config.Set(&cfg); err != nil {
		return nil, err
	}
	logger.Debug("deployed migrator", "address", addr, "chef", cfg.Chef, "oldFactory", cfg.OldFactory, "factory", cfg.Factory)
	return m, nil
}

func (m *Migrator) Address() farm.Address { return m.addr }

func (m *Migrator) Config() (*Config, error) { return m.config.Get() }

// Migrate burns the caller's whole balance of orig into the matching pair of the
// new factory and mints the same amount of new shares to the caller. The new
// pair is created when missing and must be empty.
func (m *Migrator) Migrate(env *xenv.Environment, orig farm.Address) (farm.Address, error) {
	cfg, err := m.config.Get()
	if err != nil {
		return farm.Address{}, err
	}
	caller := env.Caller()
	if caller != cfg.Chef {
		return farm.Address{}, reverts.Newf(reverts.Unauthorized, "migrator: caller %v is not the chef", caller)
	}
	if blockNow := env.BlockNumber(); blockNow < cfg.NotBeforeBlock {
		return farm.Address{}, reverts.Newf(reverts.LockedPeriod, "migrator: too early to migrate, %d < %d", blockNow, cfg.NotBeforeBlock)
	}
	kind, err := solidity.KindAt(m.state, orig)
	if err != nil {
		return farm.Address{}, err
	}
	if kind != pair.Kind {
		return farm.Address{}, reverts.Newf(reverts.InvalidParameter, "migrator: %v is not a pair", orig)
	}
	old := pair.New(orig, m.state)
	factory, err := old.Factory()
	if err != nil {
		return farm.Address{}, err
	}
	if factory != cfg.OldFactory {
		return farm.Address{}, reverts.Newf(reverts.InvalidParameter, "migrator: pair %v is not from the old factory", orig)
	}
	t0, err := old.Token0()
	if err != nil {
		return farm.Address{}, err
	}
	t1, err := old.Token1()
	if err != nil {
		return farm.Address{}, err
	}

	self := env.As(m.addr)
	newFactory := pair.NewFactory(cfg.Factory, m.state)
	target, err := newFactory.GetPair(t0, t1)
	if err != nil {
		return farm.Address{}, err
	}
	if target.IsZero() {
		created, err := newFactory.CreatePair(self, t0, t1)
		if err != nil {
			return farm.Address{}, err
		}
		target = created.Address()
	}

	lp, err := old.BalanceOf(caller)
	if err != nil {
		return farm.Address{}, err
	}
	if lp.IsZero() {
		return target, nil
	}
	if err := old.TransferFrom(self, caller, orig, lp); err != nil {
		return farm.Address{}, err
	}
	if _, _, err := old.Burn(self, target); err != nil {
		return farm.Address{}, err
	}
	if err := pair.New(target, m.state).MigrateMint(self, caller, new(uint256.Int).Set(lp)); err != nil {
		return farm.Address{}, err
	}

	logger.Info("liquidity migrated", "chef", caller, "from", orig, "to", target, "liquidity", lp)
	if err := env.Log(eventLiquidityMigrated, m.addr, []farm.Bytes32{
		xenv.AddressTopic(caller), xenv.AddressTopic(orig), xenv.AddressTopic(target),
	}, lp); err != nil {
		return farm.Address{}, err
	}
	return target, nil
}
