// Copyright (c) 2025 The PaiFarm developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides logical bucket for kv store.
type Bucket string

func (b Bucket) key(key []byte) (*buf, []byte) {
	buf := bufPool.Get().(*buf)
	buf.k = append(append(buf.k[:0], b...), key...)
	return buf, buf.k
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			buf, k := b.key(key)
			defer bufPool.Put(buf)
			return src.Get(k)
		},
		func(key []byte) (bool, error) {
			buf, k := b.key(key)
			defer bufPool.Put(buf)
			return src.Has(k)
		},
		src.IsNotFound,
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
	}{
		func(key, val []byte) error {
			buf, k := b.key(key)
			defer bufPool.Put(buf)
			return src.Put(k, val)
		},
		func(key []byte) error {
			buf, k := b.key(key)
			defer bufPool.Put(buf)
			return src.Delete(k)
		},
	}
}

// NewGetPutter creates a bucket view over the whole source store.
// Batches and iterators created from the view are scoped to the bucket.
func (b Bucket) NewGetPutter(src GetPutter) GetPutter {
	return &bucketStore{
		Getter: b.NewGetter(src),
		Putter: b.NewPutter(src),
		bucket: b,
		src:    src,
	}
}

type bucketStore struct {
	Getter
	Putter
	bucket Bucket
	src    GetPutter
}

func (s *bucketStore) NewBatch() Batch {
	batch := s.src.NewBatch()
	return &struct {
		Putter
		lenFunc
		writeFunc
	}{
		s.bucket.NewPutter(batch),
		batch.Len,
		batch.Write,
	}
}

func (s *bucketStore) NewIterator(r Range) Iterator {
	prefix := []byte(s.bucket)
	r.Start = append(append([]byte(nil), prefix...), r.Start...)
	if len(r.Limit) == 0 {
		r.Limit = util.BytesPrefix(prefix).Limit
	} else {
		r.Limit = append(append([]byte(nil), prefix...), r.Limit...)
	}
	return &bucketIterator{s.src.NewIterator(r), len(prefix)}
}

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key strips the bucket prefix.
func (i *bucketIterator) Key() []byte {
	return i.Iterator.Key()[i.prefixLen:]
}

type (
	lenFunc   func() int
	writeFunc func() error
)

func (f lenFunc) Len() int       { return f() }
func (f writeFunc) Write() error { return f() }

type buf struct {
	k []byte
}

var bufPool = sync.Pool{
	New: func() any {
		return &buf{}
	},
}
