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

package s3

import (
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gazelab/etbridge/test"
	"github.com/pkg/errors"
)

// fakeS3 serves a fixed set of objects in two listing pages.
type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
	pages   [][]string
	gets    []string
}

func (f *fakeS3) ListObjectsPages(in *s3.ListObjectsInput, fn func(*s3.ListObjectsOutput, bool) bool) error {
	for i, page := range f.pages {
		out := &s3.ListObjectsOutput{}
		for _, key := range page {
			if strings.HasPrefix(key, aws.StringValue(in.Prefix)) {
				out.Contents = append(out.Contents, &s3.Object{Key: aws.String(key)})
			}
		}
		if !fn(out, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	key := aws.StringValue(in.Key)
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.Errorf("no such key %s", key)
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(strings.NewReader(body))}, nil
}

func TestRawSource(t *testing.T) {
	fake := &fakeS3{
		objects: map[string]string{
			"study/sub02.txt": "two",
			"study/sub01.txt": "one",
		},
		pages: [][]string{
			{"study/", "study/sub02.txt", "other/sub09.txt"},
			{"study/stim_file.txt", "study/sub01.txt"},
		},
	}
	rs, err := NewRawSourceFromClient(fake, "bucket", "study/", OptRawSkip("stim_file.txt"))
	test.ErrNil(t, err, "listing")
	test.MustBe(t, []string{"study/sub01.txt", "study/sub02.txt"}, rs.Keys())

	var names, bodies []string
	for {
		r, err := rs.NextReader()
		if err == io.EOF {
			break
		}
		test.ErrNil(t, err, "next reader")
		b, err := ioutil.ReadAll(r)
		test.ErrNil(t, err, "reading")
		test.ErrNil(t, r.Close(), "closing")
		names = append(names, r.Name())
		bodies = append(bodies, string(b))
	}
	test.MustBe(t, []string{"sub01.txt", "sub02.txt"}, names)
	test.MustBe(t, []string{"one", "two"}, bodies)
	test.MustBe(t, []string{"study/sub01.txt", "study/sub02.txt"}, fake.gets)
}

func TestRawSourceGetError(t *testing.T) {
	fake := &fakeS3{pages: [][]string{{"gone.txt"}}}
	rs, err := NewRawSourceFromClient(fake, "bucket", "")
	test.ErrNil(t, err, "listing")
	if _, err := rs.NextReader(); err == nil || !strings.Contains(err.Error(), "gone.txt") {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestRawSourceTopLevelOnly(t *testing.T) {
	fake := &fakeS3{pages: [][]string{{
		"exp/sub01.asc",
		"exp/stim/sub01.txt",
		"exp/csv_files/sub01.csv",
		"exp/.DS_Store",
		"exp/reading.db",
	}}}
	hidden := func(name string) bool { return strings.HasPrefix(name, ".") }
	rs, err := NewRawSourceFromClient(fake, "bucket", "exp/", OptRawSkipFunc(hidden), OptRawSkip("reading.db"))
	test.ErrNil(t, err, "listing")
	test.MustBe(t, []string{"exp/sub01.asc"}, rs.Keys())

	rs, err = NewRawSourceFromClient(fake, "bucket", "exp", OptRawSkipFunc(hidden))
	test.ErrNil(t, err, "listing without trailing slash")
	test.MustBe(t, []string{"exp/reading.db", "exp/sub01.asc"}, rs.Keys())
}
