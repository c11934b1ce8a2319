// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package leveldb provides a metadata.Store which keeps the experiment
// document in a leveldb directory, one key per top-level document key.
package leveldb

import (
	"encoding/json"

	"github.com/gazelab/etbridge/metadata"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ metadata.Store = &Store{}

// Store is a metadata.Store backed by leveldb. Each top-level key of the
// document is stored JSON encoded.
type Store struct {
	db *leveldb.DB
}

// NewStore opens (creating if necessary) the leveldb directory at dirname.
func NewStore(dirname string) (*Store, error) {
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying leveldb.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing leveldb")
}

// Load implements metadata.Store.
func (s *Store) Load() (metadata.Document, error) {
	doc := metadata.Document{}
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		var val interface{}
		if err := json.Unmarshal(iter.Value(), &val); err != nil {
			return nil, errors.Wrapf(err, "decoding key %s", iter.Key())
		}
		doc[string(iter.Key())] = val
	}
	return doc, errors.Wrap(iter.Error(), "iterating experiment document")
}

// Merge implements metadata.Store. The keys of doc are written in one
// batch.
func (s *Store) Merge(doc metadata.Document) error {
	batch := &leveldb.Batch{}
	for _, k := range doc.Keys() {
		v, err := json.Marshal(doc[k])
		if err != nil {
			return errors.Wrapf(err, "encoding key %s", k)
		}
		batch.Put([]byte(k), v)
	}
	return errors.Wrap(s.db.Write(batch, &opt.WriteOptions{Sync: true}), "merging experiment document")
}
