// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pair

import (
	"bytes"

	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/access"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/state"
	"github.com/paiswap/paifarm/xenv"
)

// FactoryKind is recorded as the code of a deployed factory.
const FactoryKind = "factory"

var (
	FactoryABI          = abi.MustNew(gen.MustABI("factory"))
	eventPairCreated    = FactoryABI.MustEventByName("PairCreated")
	eventMigratorUpdate = FactoryABI.MustEventByName("MigratorUpdated")

	slotMigrator = solidity.Slot("factory.migrator")
	slotAllPairs = solidity.Slot("factory.allPairs")
	slotGetPair  = solidity.Slot("factory.getPair")
)

type tokenPair = solidity.PairKey[farm.Address, farm.Address]

// Factory creates pairs at deterministic addresses and keeps the migrator they trust.
type Factory struct {
	addr     farm.Address
	state    *state.State
	owner    *access.Ownable
	migrator *solidity.Address
	allPairs *solidity.Array[farm.Address]
	getPair  *solidity.Mapping[tokenPair, farm.Address]
}

func NewFactory(addr farm.Address, state *state.State) *Factory {
	ctx := solidity.NewContext(addr, state)
	return &Factory{
		addr:     addr,
		state:    state,
		owner:    access.NewOwnable(ctx),
		migrator: solidity.NewAddress(ctx, slotMigrator),
		allPairs: solidity.NewArray[farm.Address](ctx, slotAllPairs),
		getPair:  solidity.NewMapping[tokenPair, farm.Address](ctx, slotGetPair),
	}
}

// DeployFactory creates a factory at addr owned by the caller.
func DeployFactory(env *xenv.Environment, addr farm.Address) (*Factory, error) {
	if err := solidity.Claim(env.State(), addr, FactoryKind); err != nil {
		return nil, err
	}
	f := NewFactory(addr, env.State())
	if err := f.owner.Init(env, env.Caller()); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Factory) Address() farm.Address                   { return f.addr }
func (f *Factory) Owner() (farm.Address, error)            { return f.owner.Owner() }
func (f *Factory) Migrator() (farm.Address, error)         { return f.migrator.Get() }
func (f *Factory) AllPairsLength() (uint64, error)         { return f.allPairs.Len() }
func (f *Factory) AllPairs(i uint64) (farm.Address, error) { return f.allPairs.Get(i) }

// SortTokens orders two token addresses the way pairs store them.
func SortTokens(a, b farm.Address) (farm.Address, farm.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairFor computes the address of the pair of a and b created by factory, without reading state.
func PairFor(factory, a, b farm.Address) farm.Address {
	t0, t1 := SortTokens(a, b)
	return farm.CreateAddress(factory, t0.Bytes(), t1.Bytes())
}

// GetPair returns the pair of a and b, or the zero address.
func (f *Factory) GetPair(a, b farm.Address) (farm.Address, error) {
	t0, t1 := SortTokens(a, b)
	return f.getPair.Get(solidity.NewPairKey(t0, t1))
}

// CreatePair deploys the pair of a and b.
func (f *Factory) CreatePair(env *xenv.Environment, a, b farm.Address) (*Pair, error) {
	if a == b {
		return nil, reverts.New(reverts.InvalidParameter, "factory: identical addresses")
	}
	t0, t1 := SortTokens(a, b)
	if t0.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "factory: zero address")
	}
	key := solidity.NewPairKey(t0, t1)
	existing, err := f.getPair.Get(key)
	if err != nil {
		return nil, err
	}
	if !existing.IsZero() {
		return nil, reverts.New(reverts.InvalidParameter, "factory: pair exists")
	}

	addr := PairFor(f.addr, t0, t1)
	p, err := Deploy(env.As(f.addr), addr, t0, t1)
	if err != nil {
		return nil, err
	}
	if err := f.getPair.Set(key, addr); err != nil {
		return nil, err
	}
	index, err := f.allPairs.Push(addr)
	if err != nil {
		return nil, err
	}
	length := uint256.NewInt(index + 1)
	if err := env.Log(eventPairCreated, f.addr, []farm.Bytes32{xenv.AddressTopic(t0), xenv.AddressTopic(t1)}, addr, length.ToBig()); err != nil {
		return nil, err
	}
	return p, nil
}

// SetMigrator installs the migrator allowed to mint into empty pairs. Only the owner may call it.
func (f *Factory) SetMigrator(env *xenv.Environment, migrator farm.Address) error {
	if err := f.owner.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	f.migrator.Set(migrator)
	return env.Log(eventMigratorUpdate, f.addr, []farm.Bytes32{xenv.AddressTopic(migrator)})
}
