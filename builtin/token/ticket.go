// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"github.com/holiman/uint256"

	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/xenv"
)

// TicketAddress is where DeployTicket puts the ticket of holder.
func TicketAddress(holder farm.Address) farm.Address {
	return farm.CreateAddress(holder, []byte("ticket"))
}

// DeployTicket creates a token with a supply of exactly one unit, owned by and
// credited to holder. A contract stakes its ticket to occupy a farm pool on its own.
func DeployTicket(env *xenv.Environment, holder farm.Address, symbol string) (*Token, error) {
	self := env.As(holder)
	t, err := Deploy(self, TicketAddress(holder), Metadata{Name: symbol + " ticket", Symbol: symbol})
	if err != nil {
		return nil, err
	}
	if err := t.Mint(self, holder, uint256.NewInt(1)); err != nil {
		return nil, err
	}
	return t, nil
}
