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

// Package csv writes normalized trial rows as base CSV files and reads CSV
// files back in row chunks for bulk loading.
package csv

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/gazelab/etbridge"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// GzipExt is the extension of compressed CSV files.
const GzipExt = ".gz"

// Writer is an etbridge.Sink which writes rows as CSV under the etbridge
// Columns header.
type Writer struct {
	w       *csv.Writer
	closers []io.Closer
}

// NewWriter writes the header to w and returns a Writer for the rows.
// Closing the Writer flushes it but does not close w.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := &Writer{w: csv.NewWriter(w)}
	if err := cw.w.Write(etbridge.Columns); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	return cw, nil
}

// Create creates the file at path and writes the header. If compress is set
// the file is gzip compressed; path should then end in GzipExt.
func Create(path string, compress bool) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating csv file")
	}
	bw := bufio.NewWriter(f)
	var out io.Writer = bw
	var closers []io.Closer
	if compress {
		zw := gzip.NewWriter(bw)
		out = zw
		closers = append(closers, zw)
	}
	// close order matters: gzip trailer, then buffer, then file.
	closers = append(closers, flusher{bw}, f)

	w, err := NewWriter(out)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closers = closers
	return w, nil
}

type flusher struct{ *bufio.Writer }

func (f flusher) Close() error { return f.Flush() }

// WriteRows implements etbridge.Sink.
func (w *Writer) WriteRows(rows []etbridge.Row) error {
	for _, r := range rows {
		if err := w.w.Write(r.Strings()); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	return nil
}

// Close flushes buffered rows and closes whatever Create opened.
func (w *Writer) Close() error {
	w.w.Flush()
	err := errors.Wrap(w.w.Error(), "flushing csv")
	for _, c := range w.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing csv file")
		}
	}
	return err
}
