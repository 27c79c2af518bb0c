// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/state"
)

type Context struct {
	address farm.Address
	state   *state.State
}

func NewContext(address farm.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() farm.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Slot derives a storage position from a human readable name.
func Slot(name string) farm.Bytes32 {
	return farm.Blake2b([]byte(name))
}
