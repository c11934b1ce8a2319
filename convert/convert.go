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

// Package convert turns a recording, or a directory of recordings, into base
// CSV files, records the subjects and stimuli in the experiment document, and
// loads the CSV files into a SQL database.
package convert

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/aws/s3"
	"github.com/gazelab/etbridge/boltdb"
	"github.com/gazelab/etbridge/csv"
	"github.com/gazelab/etbridge/file"
	"github.com/gazelab/etbridge/json"
	"github.com/gazelab/etbridge/leveldb"
	"github.com/gazelab/etbridge/metadata"
	"github.com/gazelab/etbridge/sqldb"
	"github.com/gazelab/etbridge/termstat"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Stimulus list modes.
const (
	StimNA     = "NA"
	StimCommon = "common"
	StimDiff   = "diff"
)

const (
	// DefaultExpInfo is the usual name of the experiment document. A file of
	// this name in a data directory is never a recording.
	DefaultExpInfo = "exp_info.json"
	// StimFile is the stimulus list shared by every recording.
	StimFile = "stim_file.txt"
	// StimDir holds the per-recording stimulus lists.
	StimDir = "stim"
	// OutDir is the directory base CSV files are written to.
	OutDir = "csv_files"
)

// Main holds the options for converting recordings.
type Main struct {
	ExpInfo        string `help:"Experiment document. Must hold Experiment_name unless a Database is given."`
	MetaBackend    string `help:"Format of the experiment document: json, bolt or leveldb."`
	Device         string `help:"Tracker which produced the recordings: eyelink, smi or tobii."`
	DataPath       string `help:"Recording file, or directory of recordings. Outputs are written here."`
	StimListMode   string `help:"Stimulus names: NA (generated), common (stim_file.txt) or diff (stim/<recording>.txt)."`
	OnChannelError string `help:"What to do with trials which cannot be annotated: abort, skip or sentinel."`
	Concurrency    int    `help:"Number of recordings converted at once."`
	Gzip           bool   `help:"Compress the base CSV files."`
	Database       string `help:"DSN of the results database. Defaults to <Experiment_name>.db (sqlite) in DataPath."`
	ChunkSize      int    `help:"Rows per database transaction."`
	SkipDB         bool   `help:"Do not load the base CSV files into a database."`
	S3Bucket       string `help:"Read recordings from this S3 bucket instead of DataPath."`
	S3Region       string `help:"Region of S3Bucket."`
	S3Prefix       string `help:"Only read S3 objects under this prefix."`
	LogPath        string `help:"Log to this file instead of stderr."`
	Verbose        bool   `help:"Enable verbose logging."`
	Progress       bool   `help:"Print running counts to stderr."`

	// Results holds the outcome of each converted recording, in name order.
	Results []Result `flag:"-"`

	log   etbridge.Logger  `flag:"-"`
	stats etbridge.Statter `flag:"-"`
}

// Result is the outcome of converting one recording.
type Result struct {
	Name   string
	Base   string
	Output string
	Report *etbridge.Report
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	return &Main{
		ExpInfo:        DefaultExpInfo,
		MetaBackend:    "json",
		Device:         string(etbridge.EyeLink),
		DataPath:       ".",
		StimListMode:   StimNA,
		OnChannelError: string(etbridge.PolicyAbort),
		Concurrency:    4,
		ChunkSize:      sqldb.DefaultChunkSize,
		S3Region:       "us-east-1",
	}
}

// Run converts the recordings at DataPath, or in S3Bucket.
func (m *Main) Run() error {
	return m.RunContext(context.Background())
}

// RunContext is Run with a context which stops the conversion when done.
func (m *Main) RunContext(ctx context.Context) error {
	m.Results = nil
	logOut := io.Writer(os.Stderr)
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		defer f.Close()
		logOut = f
	}
	m.log = etbridge.NewLogger(logOut, m.Verbose)
	m.stats = etbridge.NopStatter{}
	if m.Progress {
		ts := termstat.NewCollector(os.Stderr)
		defer ts.Close()
		m.stats = ts
	}

	device, err := etbridge.ParseDevice(m.Device)
	if err != nil {
		return err
	}
	policy, err := etbridge.ParsePolicy(m.OnChannelError)
	if err != nil {
		return err
	}
	mode, err := parseStimMode(m.StimListMode)
	if err != nil {
		return err
	}
	conv := &etbridge.Converter{Device: device, Policy: policy, Log: m.log, Stats: m.stats}

	if m.S3Bucket != "" {
		raw, err := s3.NewRawSource(m.S3Region, m.S3Bucket, m.S3Prefix,
			s3.OptRawSkip(m.skipNames()...), s3.OptRawSkipFunc(notRecording))
		if err != nil {
			return errors.Wrap(err, "listing S3 recordings")
		}
		return m.convertDir(ctx, conv, mode, raw)
	}
	info, err := os.Stat(m.DataPath)
	if err != nil {
		return errors.Wrap(err, "statting data path")
	}
	if !info.IsDir() {
		return m.convertFile(conv, mode)
	}
	raw, err := file.NewRawSource(m.DataPath, file.OptRawSkip(m.skipNames()...), file.OptRawSkipFunc(notRecording))
	if err != nil {
		return errors.Wrap(err, "listing recordings")
	}
	return m.convertDir(ctx, conv, mode, raw)
}

func parseStimMode(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "na":
		return StimNA, nil
	case StimCommon:
		return StimCommon, nil
	case StimDiff:
		return StimDiff, nil
	default:
		return "", errors.Errorf("unknown stimulus list mode '%s'", s)
	}
}

func (m *Main) skipNames() []string {
	names := []string{StimFile, DefaultExpInfo}
	if m.ExpInfo != "" {
		names = append(names, filepath.Base(m.ExpInfo))
	}
	return names
}

// notRecording reports names in a data directory which are never recordings:
// hidden files and sqlite databases.
func notRecording(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".db-journal")
}

// BaseName is a recording name up to its first dot.
func BaseName(name string) string {
	name = filepath.Base(name)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// ReadStimList reads the whitespace separated stimulus names in the file at
// path.
func ReadStimList(path string) ([]string, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading stimulus list")
	}
	return strings.Fields(string(b)), nil
}

func (m *Main) csvName(base string) string {
	if m.Gzip {
		return base + ".csv" + csv.GzipExt
	}
	return base + ".csv"
}

func (m *Main) convertFile(conv *etbridge.Converter, mode string) error {
	dir := filepath.Dir(m.DataPath)
	base := BaseName(m.DataPath)
	out := filepath.Join(dir, m.csvName(base))
	if filepath.Clean(out) == filepath.Clean(m.DataPath) {
		return errors.Errorf("output %s would overwrite the recording", out)
	}
	var stimuli []string
	if mode != StimNA {
		var err error
		if stimuli, err = ReadStimList(filepath.Join(dir, StimFile)); err != nil {
			return err
		}
	}
	f, err := os.Open(m.DataPath)
	if err != nil {
		return errors.Wrap(err, "opening recording")
	}
	defer f.Close()
	res, err := m.convertRecording(conv, f, filepath.Base(m.DataPath), base, stimuli, out)
	if err != nil {
		return errors.Wrapf(err, "converting %s", m.DataPath)
	}
	m.Results = []Result{res}
	return nil
}

func (m *Main) convertRecording(conv *etbridge.Converter, r io.Reader, name, base string, stimuli []string, out string) (Result, error) {
	m.log.Printf("converting to base csv format: %s", name)
	sink, err := csv.Create(out, m.Gzip)
	if err != nil {
		return Result{}, err
	}
	rep, err := conv.Convert(json.NewSource(r), stimuli, sink)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// a partial file would load as a shorter recording
		if rerr := os.Remove(out); rerr != nil && !os.IsNotExist(rerr) {
			m.log.Printf("removing partial output %s: %v", out, rerr)
		}
		return Result{}, err
	}
	m.log.Printf("converted %s: %d trials, %d rows, %d skipped, %d failures", name, rep.Trials, rep.Rows, rep.Skipped, len(rep.Failures))
	return Result{Name: name, Base: base, Output: out, Report: rep}, nil
}

func (m *Main) convertDir(ctx context.Context, conv *etbridge.Converter, mode string, raw etbridge.RawSource) error {
	outDir := filepath.Join(m.DataPath, OutDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Wrap(err, "making output directory")
	}
	var common []string
	if mode == StimCommon {
		var err error
		if common, err = ReadStimList(filepath.Join(m.DataPath, StimFile)); err != nil {
			return err
		}
	}

	var mu sync.Mutex
	results := make(map[string]Result)
	claim := func(name, base string) error {
		mu.Lock()
		defer mu.Unlock()
		if prev, ok := results[base]; ok {
			return errors.Errorf("recordings %s and %s both convert to %s", prev.Name, name, base)
		}
		results[base] = Result{Name: name, Base: base}
		return nil
	}

	concurrency := m.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		eg.Go(func() error {
			for {
				if err := egCtx.Err(); err != nil {
					return err
				}
				r, err := raw.NextReader()
				if err == io.EOF {
					return nil
				} else if err != nil {
					return errors.Wrap(err, "getting next recording")
				}
				res, err := m.convertNamed(conv, mode, common, outDir, r, claim)
				r.Close()
				if err != nil {
					return errors.Wrapf(err, "converting %s", r.Name())
				}
				mu.Lock()
				results[res.Base] = res
				mu.Unlock()
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	bases := make([]string, 0, len(results))
	for base := range results {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	stimuli := make(map[string]struct{})
	for _, base := range bases {
		res := results[base]
		m.Results = append(m.Results, res)
		for _, s := range res.Report.Stimuli() {
			stimuli[s] = struct{}{}
		}
	}
	names := make([]string, 0, len(stimuli))
	for s := range stimuli {
		names = append(names, s)
	}
	sort.Strings(names)

	doc, err := m.updateMetadata(metadata.Conversion(bases, names))
	if err != nil {
		return err
	}
	if m.SkipDB {
		return nil
	}
	return m.load(ctx, doc, outDir)
}

func (m *Main) convertNamed(conv *etbridge.Converter, mode string, common []string, outDir string, r etbridge.NamedReadCloser, claim func(name, base string) error) (Result, error) {
	base := BaseName(r.Name())
	if err := claim(r.Name(), base); err != nil {
		return Result{}, err
	}
	stimuli := common
	if mode == StimDiff {
		var err error
		if stimuli, err = ReadStimList(filepath.Join(m.DataPath, StimDir, base+".txt")); err != nil {
			return Result{}, err
		}
	}
	return m.convertRecording(conv, r, r.Name(), base, stimuli, filepath.Join(outDir, m.csvName(base)))
}

func (m *Main) openStore() (metadata.Store, func() error, error) {
	switch strings.ToLower(m.MetaBackend) {
	case "", "json":
		return metadata.NewFileStore(m.ExpInfo), func() error { return nil }, nil
	case "bolt":
		s, err := boltdb.NewStore(m.ExpInfo)
		if err != nil {
			return nil, nil, err
		}
		if err := m.seedBolt(s); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	case "leveldb":
		s, err := leveldb.NewStore(m.ExpInfo)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown metadata backend '%s'", m.MetaBackend)
	}
}

// seedBolt imports the JSON experiment document in DataPath, if there is
// one, into keys the bolt store does not hold yet.
func (m *Main) seedBolt(s *boltdb.Store) error {
	if m.DataPath == "" {
		return nil
	}
	path := filepath.Join(m.DataPath, DefaultExpInfo)
	if filepath.Clean(path) == filepath.Clean(m.ExpInfo) {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "statting experiment document")
	}
	m.log.Debugf("seeding %s from %s", m.ExpInfo, path)
	return errors.Wrapf(s.Import(metadata.NewFileStore(path)), "importing %s", path)
}

// updateMetadata merges doc into the experiment document and returns the
// result. Without an experiment document it returns nil.
func (m *Main) updateMetadata(doc metadata.Document) (metadata.Document, error) {
	if m.ExpInfo == "" {
		return nil, nil
	}
	store, closeStore, err := m.openStore()
	if err != nil {
		return nil, errors.Wrap(err, "opening experiment document")
	}
	defer closeStore()
	if err := store.Merge(doc); err != nil {
		return nil, err
	}
	return store.Load()
}

func (m *Main) load(ctx context.Context, doc metadata.Document, outDir string) error {
	dsn := m.Database
	if dsn == "" {
		if doc == nil {
			return errors.New("need an experiment document or a database DSN to load results")
		}
		name, err := doc.ExperimentName()
		if err != nil {
			return err
		}
		dsn = filepath.Join(m.DataPath, name+".db")
	}
	db, err := sqldb.Open(dsn)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	loader := sqldb.NewLoader(db)
	loader.ChunkSize = m.ChunkSize
	loader.Log = m.log
	loader.Stats = m.stats
	return errors.Wrap(loader.LoadDir(ctx, outDir), "loading base csv files")
}

// String summarizes the results.
func (r Result) String() string {
	return fmt.Sprintf("%s -> %s (%d rows)", r.Name, r.Output, r.Report.Rows)
}
