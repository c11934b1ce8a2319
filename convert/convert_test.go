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

package convert_test

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/boltdb"
	"github.com/gazelab/etbridge/convert"
	"github.com/gazelab/etbridge/csv"
	"github.com/gazelab/etbridge/fake"
	"github.com/gazelab/etbridge/json"
	"github.com/gazelab/etbridge/leveldb"
	"github.com/gazelab/etbridge/metadata"
	"github.com/gazelab/etbridge/sqldb"
	"github.com/gazelab/etbridge/test"
)

const (
	trials  = 3
	samples = 50
)

func genDir(t *testing.T, stimList string) string {
	t.Helper()
	g := fake.NewMain()
	g.Dir = test.MustTempDir(t, "testconvert")
	g.Subjects = 2
	g.Trials = trials
	g.Samples = samples
	g.Seed = 42
	g.Experiment = "reading"
	g.StimList = stimList
	test.ErrNil(t, g.Run(), "generating recordings")
	return g.Dir
}

func countRows(t *testing.T, path string) (int, [][]string) {
	t.Helper()
	cr, err := csv.Open(path)
	test.ErrNil(t, err, "opening "+path)
	defer cr.Close()
	var all [][]string
	for {
		chunk, err := cr.Next(1000)
		if err == io.EOF {
			return len(all), all
		}
		test.ErrNil(t, err, "reading "+path)
		all = append(all, chunk...)
	}
}

func TestConvertDir(t *testing.T) {
	d := genDir(t, convert.StimCommon)
	m := convert.NewMain()
	m.ExpInfo = filepath.Join(d, "exp_info.json")
	m.DataPath = d
	m.StimListMode = convert.StimCommon
	m.Concurrency = 2
	m.ChunkSize = 40
	test.ErrNil(t, m.Run(), "converting")

	if len(m.Results) != 2 {
		t.Fatalf("expected 2 results, got %v", m.Results)
	}
	test.MustBe(t, "sub01", m.Results[0].Base)
	test.MustBe(t, "sub02", m.Results[1].Base)
	for _, res := range m.Results {
		test.MustBe(t, filepath.Join(d, convert.OutDir, res.Base+".csv"), res.Output)
		n, _ := countRows(t, res.Output)
		test.MustBe(t, trials*samples, n, res.Base)
		test.MustBe(t, trials*samples, res.Report.Rows)
		test.MustBe(t, 0, len(res.Report.Failures))
	}

	common, err := convert.ReadStimList(filepath.Join(d, convert.StimFile))
	test.ErrNil(t, err, "reading stimulus list")
	unique := make(map[string]struct{})
	for _, s := range common {
		unique[s] = struct{}{}
	}
	want := make([]interface{}, 0, len(unique))
	sorted := make([]string, 0, len(unique))
	for s := range unique {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	for _, s := range sorted {
		want = append(want, s)
	}

	doc, err := metadata.NewFileStore(m.ExpInfo).Load()
	test.ErrNil(t, err, "loading experiment document")
	test.MustBe(t, metadata.Document{
		"Experiment_name": "reading",
		"Subjects":        map[string]interface{}{"Group1": []interface{}{"sub01", "sub02"}},
		"Stimuli":         map[string]interface{}{"Type1": want},
	}, doc)

	db, err := sqldb.Open(filepath.Join(d, "reading.db"))
	test.ErrNil(t, err, "opening results database")
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	for _, table := range []string{"sub01", "sub02"} {
		var count, maxIndex int64
		test.ErrNil(t, db.Table(table).Count(&count).Error, "counting "+table)
		test.MustBe(t, int64(trials*samples), count, table)
		test.ErrNil(t, db.Raw("SELECT MAX(`Index`) FROM `"+table+"`").Scan(&maxIndex).Error, "max index")
		test.MustBe(t, int64(trials*samples), maxIndex, table)
	}
}

func TestConvertFile(t *testing.T) {
	d := test.MustTempDir(t, "testconvertfile")
	f, err := os.Create(filepath.Join(d, "sub07.json"))
	test.ErrNil(t, err, "creating recording")
	_, err = fake.WriteRecording(f, rand.New(rand.NewSource(1)), 2, samples)
	test.ErrNil(t, err, "writing recording")
	test.ErrNil(t, f.Close(), "closing recording")

	m := convert.NewMain()
	m.ExpInfo = filepath.Join(d, "never.json")
	m.Device = "SMI"
	m.DataPath = f.Name()
	test.ErrNil(t, m.Run(), "converting")

	out := filepath.Join(d, "sub07.csv")
	test.MustBe(t, out, m.Results[0].Output)
	n, rows := countRows(t, out)
	test.MustBe(t, 2*samples, n)
	test.MustBe(t, "stimulus_0", rows[0][1])
	test.MustBe(t, "stimulus_1", rows[n-1][1])
	test.MustBe(t, []string{"stimulus_0", "stimulus_1"}, m.Results[0].Report.Stimuli())

	if _, err := os.Stat(m.ExpInfo); !os.IsNotExist(err) {
		t.Fatalf("file mode should not write an experiment document: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d, convert.OutDir)); !os.IsNotExist(err) {
		t.Fatalf("file mode should not make %s: %v", convert.OutDir, err)
	}
}

func TestConvertDirBoltGzip(t *testing.T) {
	d := genDir(t, convert.StimDiff)
	other := test.MustTempDir(t, "testconvertbolt")

	m := convert.NewMain()
	m.ExpInfo = filepath.Join(other, "exp_info.bolt")
	m.MetaBackend = "bolt"
	m.DataPath = d
	m.StimListMode = convert.StimDiff
	m.Device = "tobii"
	m.Gzip = true
	m.Database = filepath.Join(other, "results.db")
	test.ErrNil(t, m.Run(), "converting")

	for _, res := range m.Results {
		test.MustBe(t, filepath.Join(d, convert.OutDir, res.Base+".csv.gz"), res.Output)
		list, err := convert.ReadStimList(filepath.Join(d, convert.StimDir, res.Base+".txt"))
		test.ErrNil(t, err, "reading stimulus list")
		_, rows := countRows(t, res.Output)
		test.MustBe(t, list[0], rows[0][1])
	}

	s, err := boltdb.NewStore(m.ExpInfo)
	test.ErrNil(t, err, "opening bolt store")
	doc, err := s.Load()
	test.ErrNil(t, err, "loading bolt store")
	test.ErrNil(t, s.Close(), "closing bolt store")
	test.MustBe(t, map[string]interface{}{"Group1": []interface{}{"sub01", "sub02"}}, doc[metadata.KeySubjects])

	db, err := sqldb.Open(m.Database)
	test.ErrNil(t, err, "opening results database")
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	var count int64
	test.ErrNil(t, db.Table("sub02").Count(&count).Error, "counting")
	test.MustBe(t, int64(trials*samples), count)
}

func TestConvertDuplicateBase(t *testing.T) {
	d := test.MustTempDir(t, "testconvertdup")
	for _, name := range []string{"sub01.json", "sub01.txt"} {
		f, err := os.Create(filepath.Join(d, name))
		test.ErrNil(t, err, "creating "+name)
		_, err = fake.WriteRecording(f, rand.New(rand.NewSource(2)), 1, 10)
		test.ErrNil(t, err, "writing "+name)
		f.Close()
	}
	m := convert.NewMain()
	m.ExpInfo = ""
	m.DataPath = d
	m.Concurrency = 1
	m.SkipDB = true
	err := m.Run()
	if err == nil || !strings.Contains(err.Error(), "both convert to sub01") {
		t.Fatalf("expected duplicate base error, got %v", err)
	}
}

func TestConvertErrors(t *testing.T) {
	d := genDir(t, "NA")
	for _, tst := range []struct {
		name string
		set  func(m *convert.Main)
		msg  string
	}{
		{"device", func(m *convert.Main) { m.Device = "gazepoint" }, "unsupported device"},
		{"policy", func(m *convert.Main) { m.OnChannelError = "ignore" }, "unknown channel error policy"},
		{"mode", func(m *convert.Main) { m.StimListMode = "some" }, "unknown stimulus list mode"},
		{"missing list", func(m *convert.Main) { m.StimListMode = convert.StimDiff }, "reading stimulus list"},
		{"no database", func(m *convert.Main) { m.ExpInfo = "" }, "need an experiment document"},
		{"backend", func(m *convert.Main) { m.MetaBackend = "yaml" }, "unknown metadata backend"},
	} {
		t.Run(tst.name, func(t *testing.T) {
			m := convert.NewMain()
			m.ExpInfo = filepath.Join(d, "exp_info.json")
			m.DataPath = d
			tst.set(m)
			err := m.Run()
			if err == nil || !strings.Contains(err.Error(), tst.msg) {
				t.Fatalf("expected error containing %q, got %v", tst.msg, err)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	test.MustBe(t, "sub01", convert.BaseName("/data/sub01.edf.json"))
	test.MustBe(t, "sub01", convert.BaseName("sub01"))
}

func TestConvertDirLevelDB(t *testing.T) {
	d := genDir(t, "NA")
	m := convert.NewMain()
	m.ExpInfo = filepath.Join(test.MustTempDir(t, "testconvertleveldb"), "exp_info")
	m.MetaBackend = "leveldb"
	m.DataPath = d
	m.OnChannelError = "sentinel"
	m.SkipDB = true
	test.ErrNil(t, m.Run(), "converting")

	s, err := leveldb.NewStore(m.ExpInfo)
	test.ErrNil(t, err, "opening leveldb store")
	defer s.Close()
	doc, err := s.Load()
	test.ErrNil(t, err, "loading")
	test.MustBe(t, map[string]interface{}{"Group1": []interface{}{"sub01", "sub02"}}, doc[metadata.KeySubjects])
	if _, err := os.Stat(filepath.Join(d, "reading.db")); !os.IsNotExist(err) {
		t.Fatalf("SkipDB should not create a database: %v", err)
	}
}

func TestConvertAbortRemovesPartialOutput(t *testing.T) {
	d := test.MustTempDir(t, "testconvertabort")
	rng := rand.New(rand.NewSource(3))
	good := fake.Trial(rng, 40)
	bad := fake.Trial(rng, 40)
	last := bad.Timestamps[len(bad.Timestamps)-1]
	bad.Fixations = []etbridge.Interval[float64]{{Start: bad.Timestamps[0], End: last + 1}}

	f, err := os.Create(filepath.Join(d, "s1.json"))
	test.ErrNil(t, err, "creating recording")
	enc := json.NewEncoder(f)
	test.ErrNil(t, enc.Encode(good), "encoding good trial")
	test.ErrNil(t, enc.Encode(bad), "encoding bad trial")
	test.ErrNil(t, f.Close(), "closing recording")

	m := convert.NewMain()
	m.ExpInfo = ""
	m.DataPath = d
	m.SkipDB = true
	err = m.Run()
	if err == nil || !strings.Contains(err.Error(), "trial 1") {
		t.Fatalf("expected failure in trial 1, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(d, convert.OutDir, "s1.csv")); !os.IsNotExist(err) {
		t.Fatalf("partial output should be removed: %v", err)
	}
}

func TestConvertBoltSeededFromJSON(t *testing.T) {
	d := genDir(t, "NA")
	m := convert.NewMain()
	m.ExpInfo = filepath.Join(test.MustTempDir(t, "testconvertseed"), "exp_info.bolt")
	m.MetaBackend = "bolt"
	m.DataPath = d
	test.ErrNil(t, m.Run(), "converting")

	s, err := boltdb.NewStore(m.ExpInfo)
	test.ErrNil(t, err, "opening bolt store")
	doc, err := s.Load()
	test.ErrNil(t, err, "loading bolt store")
	test.ErrNil(t, s.Close(), "closing bolt store")
	name, err := doc.ExperimentName()
	test.ErrNil(t, err, "experiment name")
	test.MustBe(t, "reading", name)

	if _, err := os.Stat(filepath.Join(d, "reading.db")); err != nil {
		t.Fatalf("expected results database named after the experiment: %v", err)
	}
}
