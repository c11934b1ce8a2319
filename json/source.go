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

// Package json reads and writes trial records: the per-trial JSON objects an
// external vendor reader emits for EyeLink, SMI and Tobii recordings.
//
// A recording is a stream of objects, one per trial, such as
//
//	{"trackertime": [...], "x_l": [...], "y_l": [...], "x_r": [...],
//	 "y_r": [...], "size_l": [...], "size_r": [...],
//	 "events": {"Efix": [[start, end, ...], ...], "Esac": [...],
//	            "Eblk": [...], "msg": [[time, "text"], ...]}}
//
// Event entries may carry extra values after start and end (durations,
// positions); only the first two are used.
package json

import (
	"encoding/json"
	"io"

	"github.com/gazelab/etbridge"
	"github.com/pkg/errors"
)

type record struct {
	TrackerTime []float64 `json:"trackertime"`
	XL          []float64 `json:"x_l"`
	YL          []float64 `json:"y_l"`
	XR          []float64 `json:"x_r"`
	YR          []float64 `json:"y_r"`
	SizeL       []float64 `json:"size_l"`
	SizeR       []float64 `json:"size_r"`
	Events      events    `json:"events"`
}

type events struct {
	Efix []interval `json:"Efix"`
	Esac []interval `json:"Esac"`
	Eblk []interval `json:"Eblk"`
	Msg  []message  `json:"msg"`
}

type interval etbridge.Interval[float64]

func (iv *interval) UnmarshalJSON(b []byte) error {
	var vals []json.RawMessage
	if err := json.Unmarshal(b, &vals); err != nil {
		return errors.Wrap(err, "event must be an array")
	}
	if len(vals) < 2 {
		return errors.Errorf("event needs start and end, got %s", b)
	}
	if err := json.Unmarshal(vals[0], &iv.Start); err != nil {
		return errors.Wrap(err, "decoding event start")
	}
	if err := json.Unmarshal(vals[1], &iv.End); err != nil {
		return errors.Wrap(err, "decoding event end")
	}
	return nil
}

func (iv interval) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{iv.Start, iv.End})
}

type message etbridge.Message

func (m *message) UnmarshalJSON(b []byte) error {
	var vals []json.RawMessage
	if err := json.Unmarshal(b, &vals); err != nil {
		return errors.Wrap(err, "message must be an array")
	}
	if len(vals) < 2 {
		return errors.Errorf("message needs time and text, got %s", b)
	}
	if err := json.Unmarshal(vals[0], &m.Time); err != nil {
		return errors.Wrap(err, "decoding message time")
	}
	if err := json.Unmarshal(vals[1], &m.Text); err != nil {
		return errors.Wrap(err, "decoding message text")
	}
	return nil
}

func (m message) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{m.Time, m.Text})
}

func toIntervals(ivs []interval) []etbridge.Interval[float64] {
	if ivs == nil {
		return nil
	}
	out := make([]etbridge.Interval[float64], len(ivs))
	for i, iv := range ivs {
		out[i] = etbridge.Interval[float64](iv)
	}
	return out
}

func fromIntervals(ivs []etbridge.Interval[float64]) []interval {
	out := make([]interval, len(ivs))
	for i, iv := range ivs {
		out[i] = interval(iv)
	}
	return out
}

func (r *record) trial() *etbridge.Trial {
	t := &etbridge.Trial{
		Timestamps: r.TrackerTime,
		GazeLeftX:  r.XL,
		GazeLeftY:  r.YL,
		GazeRightX: r.XR,
		GazeRightY: r.YR,
		PupilLeft:  r.SizeL,
		PupilRight: r.SizeR,
		Fixations:  toIntervals(r.Events.Efix),
		Saccades:   toIntervals(r.Events.Esac),
		Blinks:     toIntervals(r.Events.Eblk),
	}
	for _, m := range r.Events.Msg {
		t.Messages = append(t.Messages, etbridge.Message(m))
	}
	return t
}

// Source is an etbridge.TrialSource decoding trial records from a reader.
type Source struct {
	dec *json.Decoder
	n   int
}

// NewSource gets a new json source which will decode from the given reader.
func NewSource(r io.Reader) *Source {
	return &Source{
		dec: json.NewDecoder(r),
	}
}

// Trial implements etbridge.TrialSource. It returns io.EOF once the reader
// holds no more records.
func (s *Source) Trial() (*etbridge.Trial, error) {
	var rec record
	err := s.dec.Decode(&rec)
	if err == io.EOF {
		return nil, err
	} else if err != nil {
		return nil, errors.Wrapf(err, "decoding trial record %d", s.n)
	}
	s.n++
	return rec.trial(), nil
}

// Encoder writes trials as line-delimited trial records.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder gets an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes one trial record.
func (e *Encoder) Encode(t *etbridge.Trial) error {
	rec := record{
		TrackerTime: t.Timestamps,
		XL:          t.GazeLeftX,
		YL:          t.GazeLeftY,
		XR:          t.GazeRightX,
		YR:          t.GazeRightY,
		SizeL:       t.PupilLeft,
		SizeR:       t.PupilRight,
		Events: events{
			Efix: fromIntervals(t.Fixations),
			Esac: fromIntervals(t.Saccades),
			Eblk: fromIntervals(t.Blinks),
		},
	}
	for _, m := range t.Messages {
		rec.Events.Msg = append(rec.Events.Msg, message(m))
	}
	return errors.Wrap(e.enc.Encode(&rec), "encoding trial record")
}
