// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiswap/paifarm/kv"
)

func TestLevelDB(t *testing.T) {
	var (
		key        = []byte("123")
		value      = []byte("456")
		inValidKey = []byte("abc")
	)

	persisted, err := New(filepath.Join(t.TempDir(), "farm.db"), Options{16, 16})
	require.NoError(t, err)
	defer persisted.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{persisted, mem} {
		assert.Nil(t, db.Put(key, value))

		ret, err := db.Get(key)
		assert.Nil(t, err)
		assert.Equal(t, value, ret)

		has, err := db.Has(key)
		assert.Nil(t, err)
		assert.True(t, has)

		has, err = db.Has(inValidKey)
		assert.Nil(t, err)
		assert.False(t, has)

		assert.Nil(t, db.Delete(key))
		_, err = db.Get(key)
		assert.True(t, db.IsNotFound(err))
	}
}

func TestLevelDBBatchAndIterator(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	batch := db.NewBatch()
	for _, k := range []string{"a1", "a2", "b1"} {
		assert.Nil(t, batch.Put([]byte(k), []byte("v"+k)))
	}
	assert.Equal(t, 3, batch.Len())

	has, _ := db.Has([]byte("a1"))
	assert.False(t, has)
	assert.Nil(t, batch.Write())

	it := db.NewIterator(kv.Range{Start: []byte("a"), Limit: []byte("b")})
	defer it.Release()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key())+"="+string(it.Value()))
	}
	assert.Nil(t, it.Error())
	assert.Equal(t, []string{"a1=va1", "a2=va2"}, got)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farm.db")
	db, err := New(path, Options{})
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("clock"), []byte{7}))

	_, err = New(path, Options{})
	assert.Error(t, err, "the directory is locked while open")

	require.NoError(t, db.Close())
	db, err = New(path, Options{})
	require.NoError(t, err)
	defer db.Close()
	v, err := db.Get([]byte("clock"))
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, v)
}
