// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pools serves the master pools and the positions staked in them.
package pools

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/paiswap/paifarm/api/restutil"
	"github.com/paiswap/paifarm/builtin/master"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/runtime"
	"github.com/paiswap/paifarm/xenv"
)

type Pools struct {
	rt     *runtime.Runtime
	master farm.Address
}

func New(rt *runtime.Runtime, master farm.Address) *Pools {
	return &Pools{rt, master}
}

// view runs fn against the current state.
func (p *Pools) view(fn func(m *master.Master, block uint64) error) error {
	return p.rt.Call(farm.Address{}, func(env *xenv.Environment) error {
		return fn(master.New(p.master, env.State()), env.BlockNumber())
	})
}

func (p *Pools) handleGetEmission(w http.ResponseWriter, _ *http.Request) error {
	var em Emission
	if err := p.view(func(m *master.Master, block uint64) (err error) {
		em.Block = block
		if em.RewardToken, err = m.RewardToken(); err != nil {
			return err
		}
		if em.RewardPerBlock, err = m.RewardPerBlock(); err != nil {
			return err
		}
		if em.TotalAllocPoint, err = m.TotalAllocPoint(); err != nil {
			return err
		}
		if em.PoolLength, err = m.PoolLength(); err != nil {
			return err
		}
		sched, err := m.Schedule()
		if err != nil {
			return err
		}
		em.Schedule = Schedule{Start: sched.Start, BonusEnd: sched.BonusEnd, End: sched.End}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, &em)
}

func (p *Pools) handleGetPools(w http.ResponseWriter, _ *http.Request) error {
	var pools []*Pool
	if err := p.view(func(m *master.Master, _ uint64) error {
		recs, err := m.Pools()
		if err != nil {
			return err
		}
		pools = make([]*Pool, len(recs))
		for i, rec := range recs {
			pools[i] = convertPool(uint64(i), rec)
		}
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, pools)
}

func (p *Pools) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	pid, err := restutil.ParseUint64("pid", mux.Vars(req)["pid"])
	if err != nil {
		return err
	}
	var pool *Pool
	if err := p.view(func(m *master.Master, _ uint64) error {
		n, err := m.PoolLength()
		if err != nil {
			return err
		}
		if pid >= n {
			return restutil.NotFound(errNoPool(pid))
		}
		rec, err := m.PoolInfo(pid)
		if err != nil {
			return err
		}
		pool = convertPool(pid, rec)
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, pool)
}

func (p *Pools) handleGetPosition(w http.ResponseWriter, req *http.Request) error {
	pid, err := restutil.ParseUint64("pid", mux.Vars(req)["pid"])
	if err != nil {
		return err
	}
	user, err := restutil.ParseAddress("address", mux.Vars(req)["address"])
	if err != nil {
		return err
	}
	var at *uint64
	if s := req.URL.Query().Get("block"); s != "" {
		n, err := restutil.ParseUint64("block", s)
		if err != nil {
			return err
		}
		at = &n
	}

	var pos *Position
	if err := p.view(func(m *master.Master, block uint64) error {
		n, err := m.PoolLength()
		if err != nil {
			return err
		}
		if pid >= n {
			return restutil.NotFound(errNoPool(pid))
		}
		if at != nil {
			if *at < block {
				return restutil.BadRequest(errPastBlock(*at, block))
			}
			block = *at
		}
		up, err := m.UserInfo(pid, user)
		if err != nil {
			return err
		}
		pending, err := m.PendingOf(pid, user, block)
		if err != nil {
			return restutil.FromRevert(err)
		}
		pos = convertPosition(pid, user, block, up, pending)
		return nil
	}); err != nil {
		return err
	}
	return restutil.WriteJSON(w, pos)
}

func (p *Pools) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /pools").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetPools))
	sub.Path("/emission").
		Methods(http.MethodGet).
		Name("GET /pools/emission").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetEmission))
	sub.Path("/{pid:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /pools/{pid}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetPool))
	sub.Path("/{pid:[0-9]+}/positions/{address}").
		Methods(http.MethodGet).
		Name("GET /pools/{pid}/positions/{address}").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetPosition))
}
