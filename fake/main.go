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

package fake

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/metadata"
	"github.com/pkg/errors"
)

// Main writes a directory of synthetic recordings laid out the way convert
// expects: one recording per subject, an experiment document, and stimulus
// lists.
type Main struct {
	Dir        string `help:"Directory to write recordings into. Created if missing."`
	Subjects   int    `help:"Number of recordings to write."`
	Trials     int    `help:"Trials per recording."`
	Samples    int    `help:"Samples per trial."`
	Seed       int64  `help:"Random seed. -1 uses the current time."`
	Experiment string `help:"Experiment_name for exp_info.json."`
	StimList   string `help:"Stimulus lists to write: NA (none), common (stim_file.txt) or diff (stim/<subject>.txt)."`
	Verbose    bool   `help:"Log each file written."`

	Log etbridge.Logger `flag:"-"`
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	return &Main{
		Dir:        "data",
		Subjects:   3,
		Trials:     4,
		Samples:    1000,
		Seed:       -1,
		Experiment: "synthetic",
		StimList:   "common",
	}
}

// Run writes the recordings.
func (m *Main) Run() error {
	if m.Log == nil {
		m.Log = etbridge.NewLogger(os.Stderr, m.Verbose)
	}
	if m.Seed == -1 {
		m.Seed = time.Now().UnixNano()
	}
	mode := strings.ToLower(m.StimList)
	switch mode {
	case "na", "common", "diff":
	default:
		return errors.Errorf("unknown stimulus list mode '%s'", m.StimList)
	}
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return errors.Wrap(err, "making data directory")
	}

	g := NewTrialGeneratorRand(rand.New(rand.NewSource(m.Seed)))
	common := g.stimuli(m.Trials)
	if mode == "common" {
		if err := m.writeList(filepath.Join(m.Dir, "stim_file.txt"), common); err != nil {
			return err
		}
	}
	for s := 1; s <= m.Subjects; s++ {
		base := fmt.Sprintf("sub%02d", s)
		stimuli := common
		if mode != "common" {
			stimuli = g.stimuli(m.Trials)
		}
		if mode == "diff" {
			if err := m.writeList(filepath.Join(m.Dir, "stim", base+".txt"), stimuli); err != nil {
				return err
			}
		}
		if err := m.writeRecording(g, filepath.Join(m.Dir, base+".json"), stimuli); err != nil {
			return err
		}
	}
	doc := metadata.Document{metadata.KeyExperimentName: m.Experiment}
	err := metadata.NewFileStore(filepath.Join(m.Dir, "exp_info.json")).Merge(doc)
	return errors.Wrap(err, "writing experiment document")
}

func (m *Main) writeRecording(g *TrialGenerator, path string, stimuli []string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating recording")
	}
	if err := g.Write(f, stimuli, m.Samples); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	m.Log.Debugf("wrote %d trials to %s", len(stimuli), path)
	return errors.Wrap(f.Close(), "closing recording")
}

func (m *Main) writeList(path string, stimuli []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "making stimulus list directory")
	}
	err := ioutil.WriteFile(path, []byte(strings.Join(stimuli, "\n")+"\n"), 0644)
	return errors.Wrapf(err, "writing %s", path)
}

func (g *TrialGenerator) stimuli(n int) []string {
	ret := make([]string, n)
	for i := range ret {
		ret[i] = g.Stimulus()
	}
	return ret
}
