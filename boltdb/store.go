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

// Package boltdb provides a metadata.Store which keeps the experiment
// document in a boltdb file, one key per top-level document key.
package boltdb

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gazelab/etbridge/metadata"
	"github.com/pkg/errors"
)

var docBucket = []byte("experiment")

var _ metadata.Store = &Store{}

// Store is a metadata.Store backed by boltdb. Each top-level key of the
// document is stored JSON encoded.
type Store struct {
	Db *bolt.DB
}

// NewStore opens (creating if necessary) the bolt file at filename.
func NewStore(filename string) (*Store, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(docBucket)
		return errors.Wrap(err, "creating experiment bucket")
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Store{Db: db}, nil
}

// Close syncs and closes the underlying boltdb.
func (s *Store) Close() error {
	err := s.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return s.Db.Close()
}

// Load implements metadata.Store.
func (s *Store) Load() (metadata.Document, error) {
	doc := metadata.Document{}
	err := s.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(docBucket).ForEach(func(k, v []byte) error {
			var val interface{}
			if err := json.Unmarshal(v, &val); err != nil {
				return errors.Wrapf(err, "decoding key %s", k)
			}
			doc[string(k)] = val
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading experiment document")
	}
	return doc, nil
}

// Merge implements metadata.Store. Keys of doc replace stored keys; other
// stored keys are kept.
func (s *Store) Merge(doc metadata.Document) error {
	err := s.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(docBucket)
		for _, k := range doc.Keys() {
			v, err := json.Marshal(doc[k])
			if err != nil {
				return errors.Wrapf(err, "encoding key %s", k)
			}
			if err := b.Put([]byte(k), v); err != nil {
				return errors.Wrapf(err, "putting key %s", k)
			}
		}
		return nil
	})
	return errors.Wrap(err, "merging experiment document")
}

// Import copies every key of src which the store does not hold yet, so a
// JSON document can seed a bolt store.
func (s *Store) Import(src metadata.Store) error {
	doc, err := src.Load()
	if err != nil {
		return errors.Wrap(err, "loading import source")
	}
	cur, err := s.Load()
	if err != nil {
		return err
	}
	for k := range cur {
		delete(doc, k)
	}
	return s.Merge(doc)
}
