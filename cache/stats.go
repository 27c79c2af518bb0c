// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts lookups answered from the cache and lookups that fell through
// to the loader. It is safe for concurrent use.
type Stats struct {
	hits     atomic.Int64
	misses   atomic.Int64
	permille atomic.Int32
}

func (s *Stats) hit()  { s.hits.Add(1) }
func (s *Stats) miss() { s.misses.Add(1) }

// Snapshot returns the counters, and whether the hit ratio (in permille) moved
// since the previous snapshot. Callers use moved to log only on change.
func (s *Stats) Snapshot() (hits, misses int64, moved bool) {
	hits, misses = s.hits.Load(), s.misses.Load()

	var ratio int32
	if total := hits + misses; total > 0 {
		ratio = int32(hits * 1000 / total)
	}
	return hits, misses, s.permille.Swap(ratio) != ratio
}
