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
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Policy decides what the Converter does with a trial whose timeline or
// channels cannot be annotated.
type Policy string

const (
	// PolicyAbort stops the recording at the first failure.
	PolicyAbort Policy = "abort"
	// PolicySkip drops any trial with a failure.
	PolicySkip Policy = "skip"
	// PolicySentinel writes failed channels as all NoEvent. Trials whose
	// timeline is unusable are dropped.
	PolicySentinel Policy = "sentinel"
)

// ParsePolicy returns the Policy named by s. Empty means PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicySkip, PolicySentinel:
		return p, nil
	default:
		return "", errors.Errorf("unknown channel error policy '%s'", s)
	}
}

// Stat names reported by the Converter.
const (
	StatTrials          = "etbridge.trials"
	StatTrialsSkipped   = "etbridge.trials_skipped"
	StatRows            = "etbridge.rows"
	StatChannelFailures = "etbridge.channel_failures"
	StatTrialFailures   = "etbridge.trial_failures"
)

// Failure records a trial or channel which could not be annotated. Channel is
// empty when the whole trial failed.
type Failure struct {
	Trial   int
	Channel Channel
	Err     error
}

func (f Failure) String() string {
	if f.Channel == "" {
		return fmt.Sprintf("trial %d: %v", f.Trial, f.Err)
	}
	return fmt.Sprintf("trial %d, %s channel: %v", f.Trial, f.Channel, f.Err)
}

// Report summarizes the conversion of one recording.
type Report struct {
	Trials   int
	Skipped  int
	Rows     int
	Failures []Failure

	stimuli map[string]struct{}
}

// Stimuli returns the distinct stimulus names written, sorted.
func (r *Report) Stimuli() []string {
	names := make([]string, 0, len(r.stimuli))
	for name := range r.stimuli {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Converter turns the trials of a recording into normalized rows.
type Converter struct {
	Device Device
	Policy Policy
	Log    Logger
	Stats  Statter
}

// NewConverter gets a Converter for the given device which aborts on any
// failure and logs nothing.
func NewConverter(d Device) *Converter {
	return &Converter{
		Device: d,
		Policy: PolicyAbort,
		Log:    NopLogger{},
		Stats:  NopStatter{},
	}
}

// Convert reads every trial from src and writes its rows to sink. Trial i is
// named stimuli[i], or stimulus_<i> if stimuli is nil; EyeLink trials with a
// "Stim Key" message use that instead. The sink is not closed.
func (c *Converter) Convert(src TrialSource, stimuli []string, sink Sink) (*Report, error) {
	rep := &Report{stimuli: make(map[string]struct{})}
	for i := 0; ; i++ {
		t, err := src.Trial()
		if err == io.EOF {
			return rep, nil
		} else if err != nil {
			return rep, errors.Wrapf(err, "reading trial %d", i)
		}
		rep.Trials++
		c.Stats.Count(StatTrials, 1, 1)

		var name string
		if stimuli == nil {
			name = fmt.Sprintf("stimulus_%d", i)
		} else if i < len(stimuli) {
			name = stimuli[i]
		} else {
			return rep, errors.Errorf("trial %d has no stimulus name, list has %d", i, len(stimuli))
		}
		name = c.Device.stimulus(t, name)

		rows, err := c.trialRows(i, t, name, rep)
		if err != nil {
			return rep, err
		}
		if rows == nil {
			rep.Skipped++
			c.Stats.Count(StatTrialsSkipped, 1, 1)
			continue
		}
		if err := sink.WriteRows(rows); err != nil {
			return rep, errors.Wrapf(err, "writing trial %d", i)
		}
		rep.Rows += len(rows)
		rep.stimuli[name] = struct{}{}
		c.Stats.Count(StatRows, int64(len(rows)), 1)
	}
}

// trialRows returns nil rows and nil error when the trial is dropped.
func (c *Converter) trialRows(i int, t *Trial, name string, rep *Report) ([]Row, error) {
	err := t.Validate()
	var tl *Timeline[float64]
	if err == nil {
		tl, err = NewTimeline(t.Timestamps)
	}
	if err != nil {
		if c.Policy == PolicyAbort {
			return nil, errors.Wrapf(err, "trial %d", i)
		}
		c.fail(rep, Failure{Trial: i, Err: err})
		return nil, nil
	}

	a, errs := c.Device.annotate(tl, t)
	if len(errs) > 0 {
		for _, ch := range []Channel{Fixation, Saccade, Blink} {
			err, ok := errs[ch]
			if !ok {
				continue
			}
			if c.Policy == PolicyAbort {
				return nil, errors.Wrapf(err, "trial %d, %s channel", i, ch)
			}
			c.fail(rep, Failure{Trial: i, Channel: ch, Err: err})
		}
		if c.Policy == PolicySkip {
			return nil, nil
		}
		if a.Fixation == nil {
			a.Fixation = sentinel(tl.Len())
		}
		if a.Saccade == nil {
			a.Saccade = sentinel(tl.Len())
		}
		if a.Blink == nil {
			a.Blink = sentinel(tl.Len())
		}
	}
	return BuildRows(t, name, a), nil
}

func (c *Converter) fail(rep *Report, f Failure) {
	rep.Failures = append(rep.Failures, f)
	if f.Channel == "" {
		c.Stats.Count(StatTrialFailures, 1, 1)
	} else {
		c.Stats.Count(StatChannelFailures, 1, 1)
	}
	c.Log.Printf("annotation failed, %s", f)
}
