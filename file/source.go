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

// Package file provides an etbridge.RawSource over recordings on local disk.
package file

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/gazelab/etbridge"
	"github.com/pkg/errors"
)

// RawSource hands out a single file, or every regular file directly inside a
// directory in name order. It is safe for concurrent use.
type RawSource struct {
	files   []string
	fileIdx *uint64
	skip    map[string]struct{}
	skipFns []func(name string) bool
}

// RawOption is a functional option for NewRawSource.
type RawOption func(s *RawSource)

// OptRawSkip excludes files with the given base names from a directory
// listing.
func OptRawSkip(names ...string) RawOption {
	return func(s *RawSource) {
		for _, n := range names {
			s.skip[n] = struct{}{}
		}
	}
}

// OptRawSkipFunc excludes files whose base name fn reports true for from a
// directory listing.
func OptRawSkipFunc(fn func(name string) bool) RawOption {
	return func(s *RawSource) {
		s.skipFns = append(s.skipFns, fn)
	}
}

// NewRawSource lists pathname. Subdirectories are not descended into.
func NewRawSource(pathname string, opts ...RawOption) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
		skip:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if !info.IsDir() {
		s.files = []string{pathname}
		return s, nil
	}
	infos, err := ioutil.ReadDir(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "reading directory")
	}
	s.files = make([]string, 0, len(infos))
	for _, info = range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		if s.skipped(info.Name()) {
			continue
		}
		s.files = append(s.files, filepath.Join(pathname, info.Name()))
	}
	sort.Strings(s.files)
	return s, nil
}

func (s *RawSource) skipped(name string) bool {
	if _, ok := s.skip[name]; ok {
		return true
	}
	for _, fn := range s.skipFns {
		if fn(name) {
			return true
		}
	}
	return false
}

// Files returns the paths the source will hand out.
func (s *RawSource) Files() []string {
	return s.files
}

type namedFile struct {
	*os.File
}

func (m *namedFile) Name() string {
	return filepath.Base(m.File.Name())
}

// NextReader implements etbridge.RawSource. The reader's Name is the file's
// base name.
func (s *RawSource) NextReader() (etbridge.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	f, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return &namedFile{f}, nil
}
