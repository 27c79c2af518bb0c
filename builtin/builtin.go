// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin binds the core farm contracts to their well known addresses
// and deploys them as one suite.
package builtin

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/bar"
	"github.com/paiswap/paifarm/builtin/lockvault"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/builtin/voter"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

var logger = log.WithContext("pkg", "builtin")

// Builtin contracts binding.
var (
	PAI       = &tokenContract{newContract("PaiToken", token.Kind, token.ABI)}
	Factory   = &factoryContract{newContract("PaiSwapFactory", pair.FactoryKind, pair.FactoryABI)}
	Master    = &masterContract{newContract("PaiMaster", master.Kind, master.ABI)}
	Bar       = &barContract{newContract("PaiBar", bar.Kind, bar.ABI)}
	Voter     = &voterContract{newContract("PaiVoterProxy", voter.Kind, voter.ABI)}
	LockVault = &lockVaultContract{newContract("PaiLock", lockvault.Kind, lockvault.ABI)}
)

type (
	tokenContract     struct{ *contract }
	factoryContract   struct{ *contract }
	masterContract    struct{ *contract }
	barContract       struct{ *contract }
	voterContract     struct{ *contract }
	lockVaultContract struct{ *contract }
)

func (c *tokenContract) WithState(state *state.State) *token.Token {
	return token.New(c.Address, state)
}

func (c *factoryContract) WithState(state *state.State) *pair.Factory {
	return pair.NewFactory(c.Address, state)
}

func (c *masterContract) WithState(state *state.State) *master.Master {
	return master.New(c.Address, state)
}

func (c *barContract) WithState(state *state.State) *bar.Bar {
	return bar.New(c.Address, state)
}

func (c *voterContract) WithState(state *state.State) *voter.Voter {
	return voter.New(c.Address, state)
}

func (c *lockVaultContract) WithState(state *state.State) *lockvault.Vault {
	return lockvault.New(c.Address, state)
}

// Contracts lists the suite in deployment order.
func Contracts() []*contract {
	return []*contract{PAI.contract, Factory.contract, Master.contract, Bar.contract, Voter.contract, LockVault.contract}
}

// SuiteConfig are the deployment parameters of the suite.
type SuiteConfig struct {
	RewardPerBlock *uint256.Int
	Schedule       accumulator.Schedule
	DevAddr        farm.Address
	LPFeeReceiver  farm.Address
	// LockReceiver gets the releases of the lock vault. Zero skips the vault.
	LockReceiver farm.Address
	// LockAllocPoint is the weight of the master pool farmed by the vault.
	LockAllocPoint uint64
	VotePools      []uint64
}

// Deploy deploys the suite owned by the caller. The master mints PAI, so it
// takes over the token after deployment.
func Deploy(env *xenv.Environment, cfg SuiteConfig) error {
	pai, err := token.Deploy(env, PAI.Address, token.Metadata{Name: "PaiToken", Symbol: "PAI", Decimals: 18})
	if err != nil {
		return errors.WithMessage(err, "deploy token")
	}
	if _, err := pair.DeployFactory(env, Factory.Address); err != nil {
		return errors.WithMessage(err, "deploy factory")
	}
	m, err := master.Deploy(env, Master.Address, master.Config{
		RewardToken:    pai.Address(),
		RewardPerBlock: cfg.RewardPerBlock,
		Schedule:       cfg.Schedule,
		MintRewards:    true,
		DevAddr:        cfg.DevAddr,
		LPFeeReceiver:  cfg.LPFeeReceiver,
	})
	if err != nil {
		return errors.WithMessage(err, "deploy master")
	}
	if err := pai.TransferOwnership(env, m.Address()); err != nil {
		return err
	}
	if _, err := bar.Deploy(env, Bar.Address, pai.Address()); err != nil {
		return errors.WithMessage(err, "deploy bar")
	}
	if _, err := voter.Deploy(env, Voter.Address, voter.Config{
		Master:    m.Address(),
		Bar:       Bar.Address,
		VotePools: cfg.VotePools,
	}); err != nil {
		return errors.WithMessage(err, "deploy voter")
	}
	if !cfg.LockReceiver.IsZero() {
		v, err := lockvault.Deploy(env, LockVault.Address, lockvault.Config{
			RewardToken: pai.Address(),
			Master:      m.Address(),
			Receiver:    cfg.LockReceiver,
		})
		if err != nil {
			return errors.WithMessage(err, "deploy lock vault")
		}
		ticket, err := v.Ticket()
		if err != nil {
			return err
		}
		pid, err := m.Add(env, cfg.LockAllocPoint, ticket, false)
		if err != nil {
			return errors.WithMessage(err, "add lock pool")
		}
		if err := v.Join(env, pid); err != nil {
			return errors.WithMessage(err, "join lock pool")
		}
	}
	logger.Info("suite deployed", "owner", env.Caller(), "block", env.BlockNumber(), "master", m.Address())
	return nil
}
