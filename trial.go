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
	"strings"

	"github.com/pkg/errors"
)

// Missing is the value written for samples a device did not record.
const Missing = -1.0

// Message is a free-text marker the tracker logged during a trial.
type Message struct {
	Time float64
	Text string
}

// Trial is everything a vendor reader yields for one stimulus-viewing
// session. Sample slices are either as long as Timestamps or empty.
type Trial struct {
	Timestamps []float64

	GazeLeftX  []float64
	GazeLeftY  []float64
	GazeRightX []float64
	GazeRightY []float64
	PupilLeft  []float64
	PupilRight []float64

	Fixations []Interval[float64]
	Saccades  []Interval[float64]
	Blinks    []Interval[float64]

	Messages []Message
}

// Validate checks that every non-empty sample slice lines up with the
// timeline.
func (t *Trial) Validate() error {
	n := len(t.Timestamps)
	for _, s := range []struct {
		name string
		vals []float64
	}{
		{"x_l", t.GazeLeftX},
		{"y_l", t.GazeLeftY},
		{"x_r", t.GazeRightX},
		{"y_r", t.GazeRightY},
		{"size_l", t.PupilLeft},
		{"size_r", t.PupilRight},
	} {
		if len(s.vals) != 0 && len(s.vals) != n {
			return errors.Errorf("%s has %d samples, timeline has %d", s.name, len(s.vals), n)
		}
	}
	return nil
}

// StimulusKey returns the stimulus name announced by the first "Stim Key"
// message, which is the text between the first and second colon.
func (t *Trial) StimulusKey() (string, bool) {
	for _, m := range t.Messages {
		if !strings.Contains(m.Text, "Stim Key") {
			continue
		}
		parts := strings.Split(strings.Trim(m.Text, "\n"), ":")
		if len(parts) < 2 {
			return "", false
		}
		return strings.Trim(parts[1], " "), true
	}
	return "", false
}

func sample(vals []float64, i int) float64 {
	if len(vals) == 0 {
		return Missing
	}
	return vals[i]
}
