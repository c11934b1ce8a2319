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

// Package metadata reads and updates the experiment document, a JSON object
// describing an experiment: its name, subjects and stimuli.
package metadata

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Keys of the experiment document.
const (
	KeyExperimentName = "Experiment_name"
	KeySubjects       = "Subjects"
	KeyStimuli        = "Stimuli"
)

// Document is an experiment document. Values are whatever encoding/json
// produces for the stored JSON.
type Document map[string]interface{}

// ExperimentName returns the experiment name, which must be a non-empty
// string.
func (d Document) ExperimentName() (string, error) {
	v, ok := d[KeyExperimentName]
	if !ok {
		return "", errors.Errorf("experiment document has no %s", KeyExperimentName)
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return "", errors.Errorf("%s must be a non-empty string, got %#v", KeyExperimentName, v)
	}
	return name, nil
}

// Update replaces the top-level keys of d with those of other.
func (d Document) Update(other Document) {
	for k, v := range other {
		d[k] = v
	}
}

// Keys returns the top-level keys in order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Conversion builds the document fragment recording what a directory
// conversion produced: every subject in a single group and every stimulus in
// a single type.
func Conversion(subjects, stimuli []string) Document {
	return Document{
		KeySubjects: map[string]interface{}{"Group1": toInterfaces(subjects)},
		KeyStimuli:  map[string]interface{}{"Type1": toInterfaces(stimuli)},
	}
}

// toInterfaces gets values shaped like decoded JSON so documents compare
// equal before and after a round trip.
func toInterfaces(s []string) []interface{} {
	ret := make([]interface{}, len(s))
	for i, v := range s {
		ret[i] = v
	}
	return ret
}

// Store persists a Document.
type Store interface {
	Load() (Document, error)
	Merge(Document) error
}

// FileStore is a Store backed by a JSON file.
type FileStore struct {
	Path string
}

// NewFileStore gets a FileStore for the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store.
func (f *FileStore) Load() (Document, error) {
	b, err := ioutil.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "reading experiment document")
	}
	doc := Document{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", f.Path)
	}
	return doc, nil
}

// Merge implements Store. A missing file is created holding just doc.
func (f *FileStore) Merge(doc Document) error {
	cur, err := f.Load()
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			return err
		}
		cur = Document{}
	}
	cur.Update(doc)
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(cur); err != nil {
		return errors.Wrap(err, "encoding experiment document")
	}
	return errors.Wrap(ioutil.WriteFile(f.Path, buf.Bytes(), 0644), "writing experiment document")
}
