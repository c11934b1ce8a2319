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

// Device identifies the tracker family a recording came from. It decides how
// channels are derived and how trials name their stimulus.
type Device string

// Supported devices.
const (
	EyeLink Device = "eyelink"
	SMI     Device = "smi"
	Tobii   Device = "tobii"
)

// ParseDevice returns the Device named by s (case-insensitive).
func ParseDevice(s string) (Device, error) {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case EyeLink, SMI, Tobii:
		return d, nil
	default:
		return "", errors.Errorf("unsupported device '%s'", s)
	}
}

// Channel names one event kind of a trial.
type Channel string

// Channels of a trial.
const (
	Fixation Channel = "fixation"
	Saccade  Channel = "saccade"
	Blink    Channel = "blink"
)

// annotate computes every channel of t against tl. Channels which fail are
// left nil in the returned Annotations and reported in errs.
func (d Device) annotate(tl *Timeline[float64], t *Trial) (a Annotations, errs map[Channel]error) {
	errs = make(map[Channel]error)
	var err error
	if a.Fixation, err = tl.Annotate(t.Fixations); err != nil {
		errs[Fixation] = err
	}
	switch d {
	case SMI:
		// SMI exports carry no saccade events; the stretches between
		// fixations are the saccades.
		if a.Fixation != nil {
			a.Saccade = AnnotateGaps(a.Fixation)
		} else {
			errs[Saccade] = errors.Wrap(errs[Fixation], "deriving saccades from fixations")
		}
	default:
		if a.Saccade, err = tl.Annotate(t.Saccades); err != nil {
			errs[Saccade] = err
		}
	}
	if a.Blink, err = tl.Annotate(t.Blinks); err != nil {
		errs[Blink] = err
	}
	return a, errs
}

// stimulus returns the name to use for t given the configured fallback.
func (d Device) stimulus(t *Trial, fallback string) string {
	if d == EyeLink {
		if name, ok := t.StimulusKey(); ok {
			return name
		}
	}
	return fallback
}
