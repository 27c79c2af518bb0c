// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/log"
)

var logger = log.WithContext("pkg", "solidity")

// ConfigVariable is a contract parameter with a compiled-in default.
// A non zero value stored under its slot overrides the default, which lets
// test networks shorten intervals without a code change.
type ConfigVariable struct {
	slot        farm.Bytes32
	name        string
	value       uint64
	initialised bool
}

func NewConfigVariable(name string, defaultValue uint64) *ConfigVariable {
	return &ConfigVariable{
		slot:  farm.BytesToBytes32([]byte(name)),
		name:  name,
		value: defaultValue,
	}
}

func (c *ConfigVariable) Get() uint64 {
	return c.value
}

func (c *ConfigVariable) Name() string {
	return c.name
}

func (c *ConfigVariable) Slot() farm.Bytes32 {
	return c.slot
}

// Write stores an override value for the variable in the given contract.
func (c *ConfigVariable) Write(ctx *Context, value uint64) {
	NewUint256(ctx, c.slot).Set(uint256.NewInt(value))
}

// Override loads the stored value once, keeping the default when none was written.
func (c *ConfigVariable) Override(ctx *Context) {
	if c.initialised { // early return to prevent subsequent reads
		return
	}
	num, err := NewUint256(ctx, c.slot).Get()
	if err != nil {
		logger.Warn("failed to read config value", "slot", c.Name(), "error", err)
		return
	}

	c.initialised = true

	if !num.IsZero() {
		c.value = num.Uint64()
		logger.Debug("debug override found new config value", "slot", c.Name(), "value", c.Get())
	} else {
		logger.Debug("using default config value", "slot", c.Name(), "value", c.Get())
	}
}
