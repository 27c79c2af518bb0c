// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/paiswap/paifarm/cache"
	"github.com/paiswap/paifarm/farm"
	"github.com/paiswap/paifarm/kv"
	"github.com/paiswap/paifarm/stackedmap"
)

const (
	storageBucket = kv.Bucket("s")
	codeBucket    = kv.Bucket("c")

	defaultCacheSize = 4096
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type (
	storageKey struct {
		addr farm.Address
		key  farm.Bytes32
	}
	codeKey farm.Address
)

func (k storageKey) dbKey() []byte {
	return append(append(make([]byte, 0, farm.AddressLength+32), k.addr[:]...), k.key[:]...)
}

// State manages contract storage.
type State struct {
	db    kv.GetPutter
	cache *cache.LRU // committed values read from db
	sm    *stackedmap.StackedMap[any, []byte]
}

// New create state object over the given store.
func New(db kv.GetPutter) *State {
	c, _ := cache.NewLRU(defaultCacheSize)
	state := &State{
		db:    db,
		cache: c,
	}
	state.sm = stackedmap.New[any, []byte](state.cacheGetter)
	return state
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) ([]byte, bool, error) {
	var (
		bucket kv.Bucket
		dbKey  []byte
	)
	switch k := key.(type) {
	case storageKey:
		bucket, dbKey = storageBucket, k.dbKey()
	case codeKey:
		bucket, dbKey = codeBucket, k[:]
	default:
		panic(fmt.Errorf("unexpected key type %+v", key))
	}

	v, err := s.cache.GetOrLoad(key, func(any) (any, error) {
		metricStorageAccess().AddWithLabel(1, map[string]string{"type": "read", "target": "db"})
		getter := bucket.NewGetter(s.db)
		data, err := getter.Get(dbKey)
		if err != nil {
			if getter.IsNotFound(err) {
				return []byte(nil), nil
			}
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr farm.Address, key farm.Bytes32) (farm.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return farm.Bytes32{}, err
	}
	if len(raw) == 0 {
		return farm.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return farm.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return farm.Blake2b(raw), nil
	}
	return farm.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr farm.Address, key, value farm.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr farm.Address, key farm.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr farm.Address, key farm.Bytes32, raw rlp.RawValue) {
	metricStorageAccess().AddWithLabel(1, map[string]string{"type": "write", "target": "journal"})
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr farm.Address, key farm.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr farm.Address, key farm.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetCode returns the contract kind deployed at addr, or nil if nothing is deployed.
func (s *State) GetCode(addr farm.Address) ([]byte, error) {
	v, _, err := s.sm.Get(codeKey(addr))
	if err != nil {
		return nil, &Error{err}
	}
	return v, nil
}

// SetCode marks addr as a contract of the given kind.
func (s *State) SetCode(addr farm.Address, code []byte) {
	s.sm.Put(codeKey(addr), code)
}

// Exists returns whether a contract is deployed at the given address.
func (s *State) Exists(addr farm.Address) (bool, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Stage collects the net changes since the state was created or last committed.
func (s *State) Stage() *Stage {
	changes := make(map[any][]byte)
	var order []any
	s.sm.Journal(func(k any, v []byte) bool {
		if _, ok := changes[k]; !ok {
			order = append(order, k)
		}
		changes[k] = v
		return true
	})
	return newStage(s, changes, order)
}

// Commit writes all journaled changes to the store, then resets the journal.
func (s *State) Commit() error {
	stage := s.Stage()
	if err := stage.Commit(); err != nil {
		return err
	}
	s.sm = stackedmap.New[any, []byte](s.cacheGetter)
	return nil
}
