// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/paiswap/paifarm/farm"
)

// Stage abstracts net changes of a state, ready to be written as one batch.
type Stage struct {
	state   *State
	changes map[any][]byte
	order   []any
}

func newStage(state *State, changes map[any][]byte, order []any) *Stage {
	return &Stage{state, changes, order}
}

// Len returns the number of changed slots.
func (s *Stage) Len() int {
	return len(s.order)
}

// Hash computes a digest over the ordered changes.
func (s *Stage) Hash() farm.Bytes32 {
	var data [][]byte
	for _, k := range s.order {
		switch key := k.(type) {
		case storageKey:
			data = append(data, key.dbKey())
		case codeKey:
			data = append(data, key[:])
		}
		data = append(data, s.changes[k])
	}
	return farm.Blake2b(data...)
}

// Commit writes changes into the store in one batch and refreshes the read cache.
func (s *Stage) Commit() error {
	batch := s.state.db.NewBatch()
	storage := storageBucket.NewPutter(batch)
	code := codeBucket.NewPutter(batch)

	for _, k := range s.order {
		v := s.changes[k]
		var (
			putter = storage
			dbKey  []byte
		)
		switch key := k.(type) {
		case storageKey:
			dbKey = key.dbKey()
		case codeKey:
			putter, dbKey = code, key[:]
		}

		var err error
		if len(v) == 0 {
			err = putter.Delete(dbKey)
		} else {
			err = putter.Put(dbKey, v)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	for _, k := range s.order {
		s.state.cache.Add(k, s.changes[k])
	}
	metricStorageAccess().AddWithLabel(int64(len(s.order)), map[string]string{"type": "write", "target": "db"})
	return nil
}
