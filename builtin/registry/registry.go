// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry keeps the ordered pool records of a farm.
//
// Removal moves the last record into the freed slot, so a pool id is only
// stable until the next removal. Owner checks belong to the holding contract.
package registry

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/builtin/solidity"
	"github.com/paiswap/paifarm/farm"
)

// PoolRecord is the stored state of one pool.
type PoolRecord struct {
	LPToken           farm.Address
	AllocPoint        uint64
	LastRewardBlock   uint64
	AccRewardPerShare *uint256.Int
	TotalStaked       *uint256.Int
}

// Accounting returns the accumulator view of the record.
func (r *PoolRecord) Accounting() *accumulator.Pool {
	return &accumulator.Pool{
		AllocPoint:        r.AllocPoint,
		LastRewardBlock:   r.LastRewardBlock,
		AccRewardPerShare: r.AccRewardPerShare,
	}
}

// Apply copies the accumulator state back into the record.
func (r *PoolRecord) Apply(p *accumulator.Pool) {
	r.LastRewardBlock = p.LastRewardBlock
	r.AccRewardPerShare = p.AccRewardPerShare
}

// Registry is a storage view of pool records and their total weight.
type Registry struct {
	pools      *solidity.Array[*PoolRecord]
	totalAlloc *solidity.Uint256
}

// New creates a registry stored under prefix in the contract of ctx.
func New(ctx *solidity.Context, prefix string) *Registry {
	return &Registry{
		pools:      solidity.NewArray[*PoolRecord](ctx, solidity.Slot(prefix+".pools")),
		totalAlloc: solidity.NewUint256(ctx, solidity.Slot(prefix+".totalAllocPoint")),
	}
}

func (r *Registry) Len() (uint64, error) {
	return r.pools.Len()
}

// TotalAllocPoint returns the sum of all pool weights.
func (r *Registry) TotalAllocPoint() (uint64, error) {
	v, err := r.totalAlloc.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Get returns the record of pool pid.
func (r *Registry) Get(pid uint64) (*PoolRecord, error) {
	rec, err := r.pools.Get(pid)
	if err != nil {
		if errors.Is(err, solidity.ErrOutOfRange) {
			return nil, reverts.Newf(reverts.InvalidParameter, "registry: no pool %d", pid)
		}
		return nil, err
	}
	if rec.AccRewardPerShare == nil {
		rec.AccRewardPerShare = new(uint256.Int)
	}
	if rec.TotalStaked == nil {
		rec.TotalStaked = new(uint256.Int)
	}
	return rec, nil
}

// Put overwrites the record of pool pid. Weight changes go through Set.
func (r *Registry) Put(pid uint64, rec *PoolRecord) error {
	if err := r.pools.Set(pid, rec); err != nil {
		if errors.Is(err, solidity.ErrOutOfRange) {
			return reverts.Newf(reverts.InvalidParameter, "registry: no pool %d", pid)
		}
		return err
	}
	return nil
}

// IndexOf returns the id of the pool staking lpToken.
func (r *Registry) IndexOf(lpToken farm.Address) (uint64, bool, error) {
	n, err := r.pools.Len()
	if err != nil {
		return 0, false, err
	}
	for pid := range n {
		rec, err := r.pools.Get(pid)
		if err != nil {
			return 0, false, err
		}
		if rec.LPToken == lpToken {
			return pid, true, nil
		}
	}
	return 0, false, nil
}

// Add appends a pool and returns its id. Rewards start at max(blockNow, startBlock).
func (r *Registry) Add(allocPoint uint64, lpToken farm.Address, unique bool, blockNow, startBlock uint64) (uint64, error) {
	if lpToken.IsZero() {
		return 0, reverts.New(reverts.InvalidParameter, "registry: zero lp token")
	}
	if unique {
		_, found, err := r.IndexOf(lpToken)
		if err != nil {
			return 0, err
		}
		if found {
			return 0, reverts.Newf(reverts.InvalidParameter, "registry: lpToken exist %v", lpToken)
		}
	}
	total, err := r.TotalAllocPoint()
	if err != nil {
		return 0, err
	}
	r.totalAlloc.Set(uint256.NewInt(total + allocPoint))
	return r.pools.Push(&PoolRecord{
		LPToken:           lpToken,
		AllocPoint:        allocPoint,
		LastRewardBlock:   max(blockNow, startBlock),
		AccRewardPerShare: new(uint256.Int),
		TotalStaked:       new(uint256.Int),
	})
}

// Set changes the weight of pool pid. Pending rewards are not settled.
func (r *Registry) Set(pid uint64, allocPoint uint64) error {
	rec, err := r.Get(pid)
	if err != nil {
		return err
	}
	total, err := r.TotalAllocPoint()
	if err != nil {
		return err
	}
	r.totalAlloc.Set(uint256.NewInt(total - rec.AllocPoint + allocPoint))
	rec.AllocPoint = allocPoint
	return r.pools.Set(pid, rec)
}

// Remove deletes pool pid, moving the last pool into its place. It returns the
// removed record.
func (r *Registry) Remove(pid uint64) (*PoolRecord, error) {
	rec, err := r.Get(pid)
	if err != nil {
		return nil, err
	}
	n, err := r.pools.Len()
	if err != nil {
		return nil, err
	}
	if last := n - 1; pid != last {
		moved, err := r.pools.Get(last)
		if err != nil {
			return nil, err
		}
		if err := r.pools.Set(pid, moved); err != nil {
			return nil, err
		}
	}
	if err := r.pools.Pop(); err != nil {
		return nil, err
	}
	total, err := r.TotalAllocPoint()
	if err != nil {
		return nil, err
	}
	r.totalAlloc.Set(uint256.NewInt(total - rec.AllocPoint))
	return rec, nil
}
