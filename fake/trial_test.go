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

package fake_test

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/fake"
	"github.com/gazelab/etbridge/json"
	"github.com/gazelab/etbridge/test"
)

func TestRandomTrial(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			samples := 1 + rng.Intn(500)
			tr := fake.Trial(rng, samples)
			test.ErrNil(t, tr.Validate(), "validating")
			if len(tr.Timestamps) != samples {
				t.Fatalf("expected %d samples, got %d", samples, len(tr.Timestamps))
			}
			for j := 1; j < samples; j++ {
				if tr.Timestamps[j] <= tr.Timestamps[j-1] {
					t.Fatalf("timestamps not increasing at %d", j)
				}
			}
			if len(tr.Fixations) == 0 {
				t.Fatal("a trial should start with a fixation")
			}
			if _, ok := tr.StimulusKey(); !ok {
				t.Fatal("a trial should announce its stimulus")
			}

			for _, channel := range [][]etbridge.Interval[float64]{tr.Fixations, tr.Saccades, tr.Blinks} {
				ids, err := etbridge.Annotate(tr.Timestamps, channel)
				test.ErrNil(t, err, "annotating")
				if len(ids) != samples {
					t.Fatalf("annotation length %d", len(ids))
				}
			}
		})
	}
}

func TestTrialFor(t *testing.T) {
	tr := fake.NewTrialGenerator(5).TrialFor(200, "dog.png")
	name, ok := tr.StimulusKey()
	test.MustBe(t, true, ok)
	test.MustBe(t, "dog.png", name)

	// fixations and saccades alternate and cover the timeline
	fix, err := etbridge.Annotate(tr.Timestamps, tr.Fixations)
	test.ErrNil(t, err, "fixations")
	sac, err := etbridge.Annotate(tr.Timestamps, tr.Saccades)
	test.ErrNil(t, err, "saccades")
	for i := range fix {
		if (fix[i] == etbridge.NoEvent) == (sac[i] == etbridge.NoEvent) {
			t.Fatalf("sample %d: fixation %d, saccade %d", i, fix[i], sac[i])
		}
	}
	last := len(fix) - 1
	for fix[last] == etbridge.NoEvent {
		last--
	}
	test.MustBe(t, sac[:last], etbridge.AnnotateGaps(fix)[:last], "gaps between fixations")
}

func TestWriteRecording(t *testing.T) {
	buf := &bytes.Buffer{}
	stimuli, err := fake.WriteRecording(buf, rand.New(rand.NewSource(7)), 4, 100)
	test.ErrNil(t, err, "writing")
	if len(stimuli) != 4 {
		t.Fatalf("expected 4 stimuli, got %v", stimuli)
	}

	src := json.NewSource(buf)
	for i := 0; ; i++ {
		tr, err := src.Trial()
		if err == io.EOF {
			test.MustBe(t, 4, i)
			break
		}
		test.ErrNil(t, err, "reading back")
		name, _ := tr.StimulusKey()
		test.MustBe(t, stimuli[i], name)
	}
}
