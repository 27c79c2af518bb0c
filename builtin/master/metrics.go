// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package master

import "github.com/paiswap/paifarm/metrics"

var (
	metricDepositCount  = metrics.LazyLoadCounterVec("deposit_count", []string{"contract"})
	metricWithdrawCount = metrics.LazyLoadCounterVec("withdraw_count", []string{"contract", "kind"})
	metricHarvestAmount = metrics.LazyLoadCounterVec("harvest_amount", []string{"contract"})
)
