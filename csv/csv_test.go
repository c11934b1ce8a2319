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
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/test"
)

var rows = []etbridge.Row{
	{Timestamp: 1000, StimulusName: "dog.png", EventSource: "ET", GazeLeftX: 512.5, GazeRightX: -1, GazeLeftY: 384, GazeRightY: -1, PupilLeft: 900, PupilRight: -1, FixationSeq: 0, SaccadeSeq: -1, Blink: -1},
	{Timestamp: 1002, StimulusName: "dog.png", EventSource: "ET", GazeLeftX: 513, GazeRightX: -1, GazeLeftY: 385.25, GazeRightY: -1, PupilLeft: 901, PupilRight: -1, FixationSeq: -1, SaccadeSeq: 0, Blink: -1},
	{Timestamp: 1004, StimulusName: "dog, cat", EventSource: "ET", GazeLeftX: -1, GazeRightX: -1, GazeLeftY: -1, GazeRightY: -1, PupilLeft: -1, PupilRight: -1, FixationSeq: -1, SaccadeSeq: -1, Blink: 0},
}

func TestWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf)
	test.ErrNil(t, err, "new writer")
	test.ErrNil(t, w.WriteRows(rows[:2]), "writing")
	test.ErrNil(t, w.Close(), "closing")

	exp := `Timestamp,StimulusName,EventSource,GazeLeftx,GazeRightx,GazeLefty,GazeRighty,PupilLeft,PupilRight,FixationSeq,SaccadeSeq,Blink
1000,dog.png,ET,512.5,-1,384,-1,900,-1,0,-1,-1
1002,dog.png,ET,513,-1,385.25,-1,901,-1,-1,0,-1
`
	test.MustBe(t, exp, buf.String())
}

func TestWriterEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf)
	test.ErrNil(t, err, "new writer")
	test.ErrNil(t, w.Close(), "closing")
	test.MustBe(t, strings.Join(etbridge.Columns, ",")+"\n", buf.String())
}

func TestCreateAndOpen(t *testing.T) {
	d := test.MustTempDir(t, "testcsvfiles")
	for _, tst := range []struct {
		name     string
		compress bool
	}{
		{"plain.csv", false},
		{"packed.csv" + GzipExt, true},
	} {
		p := filepath.Join(d, tst.name)
		w, err := Create(p, tst.compress)
		test.ErrNil(t, err, "creating "+tst.name)
		test.ErrNil(t, w.WriteRows(rows), "writing "+tst.name)
		test.ErrNil(t, w.Close(), "closing "+tst.name)

		cr, err := Open(p)
		test.ErrNil(t, err, "opening "+tst.name)
		test.MustBe(t, etbridge.Columns, cr.Header())

		chunk, err := cr.Next(2)
		test.ErrNil(t, err, "first chunk")
		if len(chunk) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(chunk))
		}
		test.MustBe(t, rows[0].Strings(), chunk[0])

		chunk, err = cr.Next(2)
		test.ErrNil(t, err, "second chunk")
		test.MustBe(t, [][]string{rows[2].Strings()}, chunk)
		test.MustBe(t, "dog, cat", chunk[0][1])

		if _, err = cr.Next(2); err != io.EOF {
			t.Fatalf("expected io.EOF, got %v", err)
		}
		test.ErrNil(t, cr.Close(), "closing reader")
	}
}

func TestChunkReaderErrors(t *testing.T) {
	for in, msg := range map[string]string{
		"":          "missing header",
		"a,,c\n":    "empty string",
		"a,b,a\n":   "appeared at both",
		"a,b\n1\n":  "after line 1",
		"a,b\n\"1,": "after line 1",
	} {
		cr, err := NewChunkReader(strings.NewReader(in))
		if err == nil {
			_, err = cr.Next(10)
		}
		if err == nil || !strings.Contains(err.Error(), msg) {
			t.Fatalf("input %q: expected error containing %q, got %v", in, msg, err)
		}
	}
}

func TestChunkReaderSkipsBlankLines(t *testing.T) {
	cr, err := NewChunkReader(strings.NewReader("a,b\n1,2\n\n3,4\n"))
	test.ErrNil(t, err, "header")
	chunk, err := cr.Next(5)
	test.ErrNil(t, err, "chunk")
	test.MustBe(t, [][]string{{"1", "2"}, {"3", "4"}}, chunk)
	if _, err := cr.Next(0); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}
