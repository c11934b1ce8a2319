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

package csv

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ChunkReader reads a headered CSV file a bounded number of rows at a time.
// Every row must be as wide as the header. Blank lines are skipped.
type ChunkReader struct {
	r      *csv.Reader
	header []string
	line   int

	closers []io.Closer
}

// NewChunkReader reads and validates the header from r.
func NewChunkReader(r io.Reader) (*ChunkReader, error) {
	cr := &ChunkReader{r: csv.NewReader(r)}
	header, err := cr.r.Read()
	if err == io.EOF {
		return nil, errors.New("missing header")
	} else if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if err := validateHeader(header); err != nil {
		return nil, errors.Wrap(err, "validating header")
	}
	cr.header = header
	cr.line = 1
	return cr, nil
}

// Open opens the CSV file at path, decompressing it if the name ends in
// GzipExt.
func Open(path string) (*ChunkReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv file")
	}
	closers := []io.Closer{f}
	var in io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, GzipExt) {
		zr, err := gzip.NewReader(in)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "reading gzip header of %s", path)
		}
		closers = append([]io.Closer{zr}, closers...)
		in = zr
	}
	cr, err := NewChunkReader(in)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "file %s", path)
	}
	cr.closers = closers
	return cr, nil
}

// Header returns the column names.
func (c *ChunkReader) Header() []string {
	return c.header
}

// Next returns up to n rows. It returns io.EOF, and no rows, once the file
// is exhausted.
func (c *ChunkReader) Next(n int) ([][]string, error) {
	if n <= 0 {
		return nil, errors.Errorf("invalid chunk size %d", n)
	}
	rows := make([][]string, 0, min(n, 4096))
	for len(rows) < n {
		row, err := c.r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "reading row after line %d", c.line)
		}
		c.line++
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

// Close closes whatever Open opened.
func (c *ChunkReader) Close() error {
	var err error
	for _, cl := range c.closers {
		if cerr := cl.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
