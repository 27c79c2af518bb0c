// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import "github.com/pkg/errors"

func errNoPool(pid uint64) error {
	return errors.Errorf("no pool %d", pid)
}

func errPastBlock(at, current uint64) error {
	return errors.Errorf("block %d is before the current block %d", at, current)
}
