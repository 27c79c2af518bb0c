// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/paiswap/paifarm/builtin/reverts"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/state"
)

// Claim records a contract of the given kind at addr, failing if the address is taken.
func Claim(st *state.State, addr farm.Address, kind string) error {
	exists, err := st.Exists(addr)
	if err != nil {
		return err
	}
	if exists {
		return reverts.Newf(reverts.InvalidParameter, "%s: address %v is taken", kind, addr)
	}
	st.SetCode(addr, []byte(kind))
	return nil
}

// KindAt returns the kind of contract deployed at addr, empty if none.
func KindAt(st *state.State, addr farm.Address) (string, error) {
	code, err := st.GetCode(addr)
	if err != nil {
		return "", err
	}
	return string(code), nil
}
