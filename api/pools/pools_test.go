// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/api/pools"
	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/builtin/accumulator"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/farmtest"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

var (
	owner = farm.BytesToAddress([]byte("owner"))
	bob   = farm.BytesToAddress([]byte("bob"))
)

func initServer(t *testing.T) (*testchain.Chain, farm.Address, *httptest.Server) {
	chain := testchain.New(t, 1)
	chain.MustExec(owner, func(env *xenv.Environment) error {
		return builtin.Deploy(env, builtin.SuiteConfig{
			RewardPerBlock: uint256.NewInt(1000),
			Schedule:       accumulator.Schedule{End: farm.DefaultFarmLength},
		})
	})
	lp := farmtest.Token(chain, owner, "LP")
	farmtest.Mint(chain, owner, lp, uint256.NewInt(1000), bob)
	farmtest.Approve(chain, lp, bob, builtin.Master.Address)
	m := builtin.Master.WithState(chain.State())
	chain.MustExec(owner, func(env *xenv.Environment) error {
		_, err := m.Add(env, 100, lp.Address(), false)
		return err
	})
	chain.MustExec(bob, func(env *xenv.Environment) error {
		return m.Deposit(env, 0, uint256.NewInt(100))
	})

	router := mux.NewRouter()
	pools.New(chain.Runtime(), builtin.Master.Address).Mount(router, "/pools")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return chain, lp.Address(), ts
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestPools(t *testing.T) {
	chain, lp, ts := initServer(t)
	chain.AdvanceTo(11)

	body, status := httpGet(t, ts.URL+"/pools")
	require.Equal(t, http.StatusOK, status, string(body))
	var list []*pools.Pool
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, lp, list[0].LPToken)
	assert.Equal(t, uint64(100), list[0].TotalStaked.Uint64())

	body, status = httpGet(t, ts.URL+"/pools/0")
	require.Equal(t, http.StatusOK, status, string(body))
	var pool pools.Pool
	require.NoError(t, json.Unmarshal(body, &pool))
	assert.Equal(t, uint64(100), pool.AllocPoint)

	_, status = httpGet(t, ts.URL+"/pools/9")
	assert.Equal(t, http.StatusNotFound, status)

	body, status = httpGet(t, ts.URL+"/pools/emission")
	require.Equal(t, http.StatusOK, status, string(body))
	var em pools.Emission
	require.NoError(t, json.Unmarshal(body, &em))
	assert.Equal(t, uint64(11), em.Block)
	assert.Equal(t, builtin.PAI.Address, em.RewardToken)
	assert.Equal(t, uint64(1000), em.RewardPerBlock.Uint64())
	assert.Equal(t, uint64(1), em.PoolLength)
	assert.Equal(t, farm.DefaultFarmLength, em.Schedule.End)
}

func TestPosition(t *testing.T) {
	chain, _, ts := initServer(t)
	chain.AdvanceTo(11)

	body, status := httpGet(t, ts.URL+"/pools/0/positions/"+bob.String())
	require.Equal(t, http.StatusOK, status, string(body))
	var pos pools.Position
	require.NoError(t, json.Unmarshal(body, &pos))
	assert.Equal(t, uint64(11), pos.Block)
	assert.Equal(t, uint64(100), pos.Amount.Uint64())
	assert.Equal(t, uint64(10_000), pos.Pending.Uint64())

	body, status = httpGet(t, ts.URL+"/pools/0/positions/"+bob.String()+"?block=21")
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &pos))
	assert.Equal(t, uint64(20_000), pos.Pending.Uint64())

	_, status = httpGet(t, ts.URL+"/pools/0/positions/"+bob.String()+"?block=5")
	assert.Equal(t, http.StatusBadRequest, status)
	_, status = httpGet(t, ts.URL+"/pools/0/positions/0xbad")
	assert.Equal(t, http.StatusBadRequest, status)
	_, status = httpGet(t, ts.URL+"/pools/3/positions/"+bob.String())
	assert.Equal(t, http.StatusNotFound, status)
}
