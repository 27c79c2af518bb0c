// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package access provides ownership and reentrancy protection for built-in contracts.
package access

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/abi"
	"github.com/paiswap/paifarm/builtin/gen"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/xenv"
)

var (
	ABI                  = abi.MustNew(gen.MustABI("access"))
	ownershipTransferred = ABI.MustEventByName("OwnershipTransferred")
	slotOwner            = solidity.Slot("access.owner")
	slotReentrancyGuard  = solidity.Slot("access.guard")
)

// Ownable restricts administrative calls to a single owner account.
type Ownable struct {
	address farm.Address
	owner   *solidity.Address
}

func NewOwnable(ctx *solidity.Context) *Ownable {
	return &Ownable{
		address: ctx.Address(),
		owner:   solidity.NewAddress(ctx, slotOwner),
	}
}

// Owner returns the current owner.
func (o *Ownable) Owner() (farm.Address, error) {
	return o.owner.Get()
}

// Init sets the first owner.
func (o *Ownable) Init(env *xenv.Environment, owner farm.Address) error {
	o.owner.Set(owner)
	return env.Log(ownershipTransferred, o.address, []farm.Bytes32{xenv.AddressTopic(farm.Address{}), xenv.AddressTopic(owner)})
}

// OnlyOwner fails unless caller is the owner.
func (o *Ownable) OnlyOwner(caller farm.Address) error {
	owner, err := o.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return reverts.Newf(reverts.Unauthorized, "caller %v is not the owner", caller)
	}
	return nil
}

// TransferOwnership hands the contract over to newOwner.
func (o *Ownable) TransferOwnership(env *xenv.Environment, newOwner farm.Address) error {
	if err := o.OnlyOwner(env.Caller()); err != nil {
		return err
	}
	if newOwner.IsZero() {
		return reverts.New(reverts.InvalidParameter, "new owner is the zero address")
	}
	o.owner.Set(newOwner)
	return env.Log(ownershipTransferred, o.address, []farm.Bytes32{xenv.AddressTopic(env.Caller()), xenv.AddressTopic(newOwner)})
}

// Guard is a storage backed reentrancy lock.
type Guard struct {
	locked *solidity.Uint256
}

func NewGuard(ctx *solidity.Context) *Guard {
	return &Guard{locked: solidity.NewUint256(ctx, slotReentrancyGuard)}
}

// Do runs fn holding the lock. A nested Do on the same contract fails with Reentrant.
func (g *Guard) Do(fn func() error) error {
	locked, err := g.locked.Get()
	if err != nil {
		return err
	}
	if !locked.IsZero() {
		return reverts.New(reverts.Reentrant, "reentrant call")
	}
	g.locked.Set(uint256.NewInt(1))
	defer g.locked.Set(new(uint256.Int))
	return fn()
}
