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

package etbridge

import (
	"strconv"
)

// EventSource is the EventSource column value of every eye-tracker row.
const EventSource = "ET"

// Columns is the header of every normalized table.
var Columns = []string{
	"Timestamp",
	"StimulusName",
	"EventSource",
	"GazeLeftx",
	"GazeRightx",
	"GazeLefty",
	"GazeRighty",
	"PupilLeft",
	"PupilRight",
	"FixationSeq",
	"SaccadeSeq",
	"Blink",
}

// Row is one sample of a trial in the normalized schema.
type Row struct {
	Timestamp    float64
	StimulusName string
	EventSource  string
	GazeLeftX    float64
	GazeRightX   float64
	GazeLeftY    float64
	GazeRightY   float64
	PupilLeft    float64
	PupilRight   float64
	FixationSeq  int
	SaccadeSeq   int
	Blink        int
}

// Strings renders the row in Columns order.
func (r Row) Strings() []string {
	return []string{
		formatFloat(r.Timestamp),
		r.StimulusName,
		r.EventSource,
		formatFloat(r.GazeLeftX),
		formatFloat(r.GazeRightX),
		formatFloat(r.GazeLeftY),
		formatFloat(r.GazeRightY),
		formatFloat(r.PupilLeft),
		formatFloat(r.PupilRight),
		strconv.Itoa(r.FixationSeq),
		strconv.Itoa(r.SaccadeSeq),
		strconv.Itoa(r.Blink),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Annotations holds the per-sample sequence ids of a trial's channels.
type Annotations struct {
	Fixation []int
	Saccade  []int
	Blink    []int
}

// BuildRows assembles one Row per sample. Every annotation slice must be as
// long as the timeline; the trial must have passed Validate.
func BuildRows(t *Trial, stimulus string, a Annotations) []Row {
	rows := make([]Row, len(t.Timestamps))
	for i, ts := range t.Timestamps {
		rows[i] = Row{
			Timestamp:    ts,
			StimulusName: stimulus,
			EventSource:  EventSource,
			GazeLeftX:    sample(t.GazeLeftX, i),
			GazeRightX:   sample(t.GazeRightX, i),
			GazeLeftY:    sample(t.GazeLeftY, i),
			GazeRightY:   sample(t.GazeRightY, i),
			PupilLeft:    sample(t.PupilLeft, i),
			PupilRight:   sample(t.PupilRight, i),
			FixationSeq:  a.Fixation[i],
			SaccadeSeq:   a.Saccade[i],
			Blink:        a.Blink[i],
		}
	}
	return rows
}

func sentinel(n int) []int {
	seq := make([]int, n)
	for i := range seq {
		seq[i] = NoEvent
	}
	return seq
}
