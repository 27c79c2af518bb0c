// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import "github.com/paiswap/paifarm/metrics"

var (
	metricTxCount     = metrics.LazyLoadCounterVec("tx_count", []string{"result"})
	metricTxDuration  = metrics.LazyLoadHistogram("tx_duration_us", metrics.BucketTxDuration)
	metricBlockNumber = metrics.LazyLoadGauge("block_number")
)
