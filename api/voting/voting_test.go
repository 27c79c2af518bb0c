// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting_test

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

	"github.com/paiswap/paifarm/api/voting"
	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/testchain"
	"github.com/paiswap/paifarm/xenv"
)

var (
	owner = farm.BytesToAddress([]byte("owner"))
	bob   = farm.BytesToAddress([]byte("bob"))
)

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return body, res.StatusCode
}

func TestVoting(t *testing.T) {
	chain := testchain.New(t, 1)
	chain.MustExec(owner, func(env *xenv.Environment) error {
		if err := builtin.Deploy(env, builtin.SuiteConfig{VotePools: []uint64{0, 3}}); err != nil {
			return err
		}
		// the master owns the token, mint as it
		return builtin.PAI.WithState(env.State()).Mint(env.As(builtin.Master.Address), bob, uint256.NewInt(90_000))
	})

	router := mux.NewRouter()
	voting.New(chain.Runtime(), builtin.Voter.Address).Mount(router, "/voting")
	ts := httptest.NewServer(router)
	defer ts.Close()

	body, status := httpGet(t, ts.URL+"/voting")
	require.Equal(t, http.StatusOK, status, string(body))
	var summary voting.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, uint64(300), summary.TotalSupply.Uint64())
	assert.Equal(t, []uint64{0, 3}, summary.VotePools)
	assert.Equal(t, voting.Weights{PoolWeight: 2, WalletWeight: 1, DerivativeWeight: 1, SqrtEnabled: true}, summary.Weights)

	body, status = httpGet(t, ts.URL+"/voting/"+bob.String())
	require.Equal(t, http.StatusOK, status, string(body))
	var power voting.Power
	require.NoError(t, json.Unmarshal(body, &power))
	assert.Equal(t, bob, power.Address)
	assert.Equal(t, uint64(300), power.Balance.Uint64())

	_, status = httpGet(t, ts.URL+"/voting/nobody")
	assert.Equal(t, http.StatusBadRequest, status)
}
