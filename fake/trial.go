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

// Package fake generates synthetic eye-tracking recordings: random trials
// made of alternating fixations and saccades with occasional blinks, written
// as the line-delimited JSON records the json package reads.
package fake

import (
	"io"
	"math/rand"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/fake/gen"
	"github.com/gazelab/etbridge/json"
	"github.com/pkg/errors"
)

const (
	sampleStep = 2 // ms between samples, a 500Hz tracker

	screenWidth  = 1024
	screenHeight = 768
)

// TrialGenerator generates random but well formed trials.
type TrialGenerator struct {
	r *rand.Rand
	g *gen.Generator

	// Stimuli is the number of distinct stimulus names Stimulus draws from.
	Stimuli int
}

// NewTrialGenerator gets a TrialGenerator with the given random seed. Using
// the same seed gives the same trials on a given version of Go.
func NewTrialGenerator(seed int64) *TrialGenerator {
	return NewTrialGeneratorRand(rand.New(rand.NewSource(seed)))
}

// NewTrialGeneratorRand gets a TrialGenerator drawing from r.
func NewTrialGeneratorRand(r *rand.Rand) *TrialGenerator {
	return &TrialGenerator{
		r:       r,
		g:       gen.NewGeneratorRand(r),
		Stimuli: 20,
	}
}

// Stimulus gets a random stimulus file name.
func (g *TrialGenerator) Stimulus() string {
	return g.g.String(8, g.Stimuli) + ".png"
}

// Trial generates a trial of the given number of samples showing a random
// stimulus.
func (g *TrialGenerator) Trial(samples int) *etbridge.Trial {
	return g.TrialFor(samples, g.Stimulus())
}

// TrialFor generates a trial of the given number of samples which announces
// stimulus in a "Stim Key" message.
func (g *TrialGenerator) TrialFor(samples int, stimulus string) *etbridge.Trial {
	if samples < 1 {
		samples = 1
	}
	t := &etbridge.Trial{
		Timestamps: make([]float64, samples),
		GazeLeftX:  make([]float64, samples),
		GazeLeftY:  make([]float64, samples),
		GazeRightX: make([]float64, samples),
		GazeRightY: make([]float64, samples),
		PupilLeft:  make([]float64, samples),
		PupilRight: make([]float64, samples),
	}
	start := float64(g.g.Between(1000, 100000))
	for i := range t.Timestamps {
		t.Timestamps[i] = start + float64(i*sampleStep)
	}
	t.Messages = []etbridge.Message{
		{Time: start, Text: "TRIALID"},
		{Time: start, Text: "!V TRIAL_VAR Stim Key: " + stimulus},
	}

	x, y := screenWidth/2.0, screenHeight/2.0
	for i := 0; i < samples; {
		end := min(i+g.g.Between(20, 60), samples) - 1
		t.Fixations = append(t.Fixations, g.span(t, i, end))
		for j := i; j <= end; j++ {
			g.look(t, j, x, y)
		}
		i = end + 1
		if i >= samples {
			break
		}

		end = min(i+g.g.Between(3, 10), samples) - 1
		t.Saccades = append(t.Saccades, g.span(t, i, end))
		nx, ny := g.r.Float64()*screenWidth, g.r.Float64()*screenHeight
		for j := i; j <= end; j++ {
			frac := float64(j-i+1) / float64(end-i+1)
			g.look(t, j, x+(nx-x)*frac, y+(ny-y)*frac)
		}
		if end-i >= 2 && g.r.Intn(5) == 0 {
			t.Blinks = append(t.Blinks, g.span(t, i+1, end-1))
			for j := i + 1; j < end; j++ {
				g.blink(t, j)
			}
		}
		x, y = nx, ny
		i = end + 1
	}
	return t
}

func (g *TrialGenerator) span(t *etbridge.Trial, start, end int) etbridge.Interval[float64] {
	return etbridge.Interval[float64]{Start: t.Timestamps[start], End: t.Timestamps[end]}
}

func (g *TrialGenerator) look(t *etbridge.Trial, i int, x, y float64) {
	t.GazeLeftX[i] = g.g.Jitter(x, 4)
	t.GazeLeftY[i] = g.g.Jitter(y, 4)
	t.GazeRightX[i] = g.g.Jitter(x+3, 4)
	t.GazeRightY[i] = g.g.Jitter(y, 4)
	t.PupilLeft[i] = g.g.Jitter(900, 15)
	t.PupilRight[i] = g.g.Jitter(880, 15)
}

func (g *TrialGenerator) blink(t *etbridge.Trial, i int) {
	for _, vals := range [][]float64{t.GazeLeftX, t.GazeLeftY, t.GazeRightX, t.GazeRightY, t.PupilLeft, t.PupilRight} {
		vals[i] = etbridge.Missing
	}
}

// Write writes one JSON trial record per stimulus to w.
func (g *TrialGenerator) Write(w io.Writer, stimuli []string, samples int) error {
	enc := json.NewEncoder(w)
	for i, s := range stimuli {
		if err := enc.Encode(g.TrialFor(samples, s)); err != nil {
			return errors.Wrapf(err, "writing trial %d", i)
		}
	}
	return nil
}

// Trial generates a random trial with the given number of samples.
func Trial(rng *rand.Rand, samples int) *etbridge.Trial {
	return NewTrialGeneratorRand(rng).Trial(samples)
}

// WriteRecording writes a recording of random trials to w and returns the
// stimulus names the trials announce, in trial order.
func WriteRecording(w io.Writer, rng *rand.Rand, trials, samples int) ([]string, error) {
	g := NewTrialGeneratorRand(rng)
	stimuli := make([]string, trials)
	for i := range stimuli {
		stimuli[i] = g.Stimulus()
	}
	return stimuli, g.Write(w, stimuli, samples)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
