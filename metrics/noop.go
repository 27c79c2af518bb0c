// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// discard is the backend installed until InitializePrometheusMetrics runs.
// Every meter it hands out is the same value that drops what it is given,
// so farm code can record unconditionally.
type discard struct{}

var discardMeter sink

func (discard) GetOrCreateCountMeter(string) CountMeter                  { return discardMeter }
func (discard) GetOrCreateCountVecMeter(string, []string) CountVecMeter  { return discardMeter }
func (discard) GetOrCreateGaugeMeter(string) GaugeMeter                  { return discardMeter }
func (discard) GetOrCreateGaugeVecMeter(string, []string) GaugeVecMeter  { return discardMeter }
func (discard) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return discardMeter }

// GetOrCreateHandler returns nil, there is nothing to scrape.
func (discard) GetOrCreateHandler() http.Handler { return nil }

type sink struct{}

func (sink) Add(int64)                             {}
func (sink) Set(int64)                             {}
func (sink) Observe(int64)                         {}
func (sink) AddWithLabel(int64, map[string]string) {}
func (sink) SetWithLabel(int64, map[string]string) {}
