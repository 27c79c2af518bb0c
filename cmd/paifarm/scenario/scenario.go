// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package scenario loads and replays scripted farm sessions.
//
// A scenario deploys the suite, then runs its steps in order. Each step may
// move the clock before it runs, and runs as one transaction sent by its
// from account. Accounts are names, mapped to addresses with
// farm.NameToAddress, or 0x prefixed addresses.
package scenario

import (
	"bytes"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/paiswap/paifarm/builtin/accumulator"
)

// Amount is a token amount written as a decimal, with optional underscores.
type Amount struct {
	v *uint256.Int
}

func NewAmount(v uint64) Amount { return Amount{uint256.NewInt(v)} }

// Int returns a copy of the amount, zero when unset.
func (a Amount) Int() *uint256.Int {
	if a.v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a.v)
}

func (a Amount) IsSet() bool { return a.v != nil }

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	v, err := uint256.FromDecimal(strings.ReplaceAll(node.Value, "_", ""))
	if err != nil {
		return errors.Wrapf(err, "line %d: amount %q", node.Line, node.Value)
	}
	a.v = v
	return nil
}

type Schedule struct {
	Start    uint64 `yaml:"start"`
	BonusEnd uint64 `yaml:"bonusEnd"`
	End      uint64 `yaml:"end"`
}

// Suite are the deployment parameters. Alloc lists the PAI minted to
// accounts while the deployer still owns the token.
type Suite struct {
	RewardPerBlock Amount            `yaml:"rewardPerBlock"`
	Schedule       *Schedule         `yaml:"schedule"`
	Dev            string            `yaml:"dev"`
	LPFeeReceiver  string            `yaml:"lpFeeReceiver"`
	LockReceiver   string            `yaml:"lockReceiver"`
	LockAllocPoint uint64            `yaml:"lockAllocPoint"`
	VotePools      []uint64          `yaml:"votePools"`
	Alloc          map[string]Amount `yaml:"alloc"`
}

func (s *Suite) schedule(start uint64) accumulator.Schedule {
	if s.Schedule == nil {
		return accumulator.DefaultSchedule(start)
	}
	return accumulator.Schedule{Start: s.Schedule.Start, BonusEnd: s.Schedule.BonusEnd, End: s.Schedule.End}
}

// Step is one transaction. Only the fields used by its op are read.
type Step struct {
	Block uint64 `yaml:"block"`
	Mine  uint64 `yaml:"mine"`
	From  string `yaml:"from"`
	Op    string `yaml:"op"`

	Token   string   `yaml:"token"`
	Tokens  []string `yaml:"tokens"`
	To      string   `yaml:"to"`
	Amount  Amount   `yaml:"amount"`
	Amounts []Amount `yaml:"amounts"`
	LP      string   `yaml:"lp"`
	Pool    uint64   `yaml:"pool"`
	Alloc   uint64   `yaml:"alloc"`
	Weights []uint64 `yaml:"weights"`
	Enabled bool     `yaml:"enabled"`
	// As names the pair created by the step, for later lp and token fields.
	As string `yaml:"as"`
	// Revert expects the step to be rejected.
	Revert bool `yaml:"revert"`
}

type Scenario struct {
	Owner string  `yaml:"owner"`
	Start uint64  `yaml:"start"`
	Suite *Suite  `yaml:"suite"`
	Steps []*Step `yaml:"steps"`
}

// Parse decodes a scenario. Unknown fields and ops are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if s.Owner == "" {
		s.Owner = "owner"
	}
	for i, step := range s.Steps {
		if step == nil {
			return nil, errors.Errorf("step %d: empty", i)
		}
		if _, ok := ops[step.Op]; !ok {
			return nil, errors.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if step.Op != "" && step.From == "" {
			step.From = s.Owner
		}
	}
	return &s, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return Parse(data)
}
