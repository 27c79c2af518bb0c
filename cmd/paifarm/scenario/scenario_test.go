// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package scenario_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/builtin"
	"github.com/paiswap/paifarm/builtin/pair"
	"github.com/paiswap/paifarm/builtin/token"
	"github.com/paiswap/paifarm/cmd/paifarm/scenario"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/test/testchain"
)

func balance(t *testing.T, chain *testchain.Chain, tok farm.Address, name string) uint64 {
	b, err := token.New(tok, chain.State()).BalanceOf(farm.NameToAddress(name))
	require.NoError(t, err)
	return b.Uint64()
}

func TestParse(t *testing.T) {
	sc, err := scenario.Parse([]byte(`
start: 7
suite: {rewardPerBlock: 1_000_000_000_000_000_000_000}
steps:
  - {op: deposit, pool: 1, amount: 12}
  - {mine: 3}
`))
	require.NoError(t, err)
	assert.Equal(t, "owner", sc.Owner)
	assert.Equal(t, uint64(7), sc.Start)
	want, _ := uint256.FromDecimal("1000000000000000000000")
	assert.Equal(t, want, sc.Suite.RewardPerBlock.Int())
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, "owner", sc.Steps[0].From)
	assert.Equal(t, uint64(12), sc.Steps[0].Amount.Int().Uint64())
	assert.Empty(t, sc.Steps[1].From)
	assert.False(t, sc.Steps[1].Amount.IsSet())

	tests := []struct {
		name string
		doc  string
	}{
		{"unknown op", "steps: [{op: burnAll}]"},
		{"unknown field", "steps: [{op: mint, value: 1}]"},
		{"bad amount", "steps: [{op: mint, amount: 1.5}]"},
		{"negative amount", "steps: [{op: mint, amount: -1}]"},
		{"null step", "steps: [~]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestReplay(t *testing.T) {
	sc, err := scenario.Load("testdata/farm.yaml")
	require.NoError(t, err)

	chain := testchain.New(t, 0)
	require.NoError(t, scenario.NewReplayer(chain.Runtime()).Replay(context.Background(), sc))

	assert.Equal(t, uint64(325), chain.Block())
	pai := builtin.PAI.Address
	// 4*100 + 4*100/3 + 2*100/6
	assert.Equal(t, uint64(566), balance(t, chain, pai, "alice"))
	assert.Equal(t, uint64(100), balance(t, chain, pai, "dev"))
	assert.Equal(t, uint64(4000), balance(t, chain, pai, "dave"))
	assert.Equal(t, uint64(1000), balance(t, chain, builtin.Bar.Address, "dave"))

	// the vote pool holds no pair, so only wallet and bar count: sqrt(4000 + 1000)
	power, err := builtin.Voter.WithState(chain.State()).BalanceOf(farm.NameToAddress("dave"))
	require.NoError(t, err)
	assert.Equal(t, uint64(70), power.Uint64())

	var reverted int
	for _, r := range chain.Runtime().Receipts() {
		if r.Reverted {
			reverted++
			assert.Equal(t, "remove", r.Method)
			assert.Equal(t, farm.NameToAddress("bob"), r.Origin)
		}
	}
	assert.Equal(t, 1, reverted)
}

func TestReplayNames(t *testing.T) {
	chain := testchain.New(t, 0)
	r := scenario.NewReplayer(chain.Runtime())

	sc, err := scenario.Parse([]byte(`
start: 1
suite: {alloc: {alice: 50_000}}
steps:
  - {op: token, token: USD}
  - {op: mint, token: USD, to: alice, amount: 200_000}
  - {from: alice, op: pair, tokens: [PAI, USD], amounts: [10_000, 40_000], as: lp}
  - {op: add, lp: lp, alloc: 10}
  - {block: 2, from: alice, op: deposit, pool: 0, amount: 150}
`))
	require.NoError(t, err)
	require.NoError(t, r.Replay(context.Background(), sc))

	lp, err := r.Address("lp")
	require.NoError(t, err)
	t0, t1 := pair.SortTokens(builtin.PAI.Address, farm.NameToAddress("USD"))
	assert.Equal(t, pair.PairFor(builtin.Factory.Address, t0, t1), lp)
	rec, err := builtin.Master.WithState(chain.State()).PoolInfo(0)
	require.NoError(t, err)
	assert.Equal(t, lp, rec.LPToken)
	assert.Equal(t, uint64(150), rec.TotalStaked.Uint64())

	// a name bound by a reverted step is forgotten
	sc, err = scenario.Parse([]byte(`
steps:
  - {from: alice, op: pair, tokens: [PAI, USD], as: again, revert: true}
`))
	require.NoError(t, err)
	require.NoError(t, r.Replay(context.Background(), sc))
	again, err := r.Address("again")
	require.NoError(t, err)
	assert.Equal(t, farm.NameToAddress("again"), again)

	addr, err := r.Address("0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	assert.Equal(t, farm.BytesToAddress([]byte{0xff}), addr)
	_, err = r.Address("0xzz")
	assert.Error(t, err)
}

func TestReplayRevertExpectations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		ok   bool
	}{
		{"unexpected revert", "steps: [{from: bob, op: set, pool: 0, alloc: 1}]", false},
		{"expected revert", "steps: [{from: bob, op: set, pool: 0, alloc: 1, revert: true}]", true},
		{"missing revert", "steps: [{op: rewardPerBlock, amount: 5, revert: true}]", false},
		{"failure", "steps: [{op: voteWeights, weights: [1]}]", false},
		{"clock backwards", "steps: [{block: 1}]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := testchain.New(t, 0)
			r := scenario.NewReplayer(chain.Runtime())
			require.NoError(t, r.Replay(context.Background(), &scenario.Scenario{Owner: "owner", Start: 5, Suite: &scenario.Suite{}}))

			sc, err := scenario.Parse([]byte(tt.doc))
			require.NoError(t, err)
			err = r.Replay(context.Background(), sc)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestReplayCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc := &scenario.Scenario{Steps: []*scenario.Step{{Mine: 1}}}
	err := scenario.NewReplayer(testchain.New(t, 0).Runtime()).Replay(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}
