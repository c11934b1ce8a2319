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

// Package s3 provides an etbridge.RawSource over recordings stored in an S3
// bucket.
package s3

import (
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gazelab/etbridge"
	"github.com/pkg/errors"
)

// RawSource hands out the objects of a bucket under a prefix, in key order.
// Only objects directly under the prefix are recordings: directory
// placeholders, keys nested deeper and skipped base names are left out. It
// is safe for concurrent use.
type RawSource struct {
	bucket string
	prefix string

	s3      s3iface.S3API
	keys    []string
	objIdx  *uint64
	skipFns []func(name string) bool
}

// RawOption is a functional option for NewRawSource.
type RawOption func(rs *RawSource)

// OptRawSkip leaves out objects with the given base names.
func OptRawSkip(names ...string) RawOption {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	return OptRawSkipFunc(func(name string) bool {
		_, ok := skip[name]
		return ok
	})
}

// OptRawSkipFunc leaves out objects whose base name fn reports true for.
func OptRawSkipFunc(fn func(name string) bool) RawOption {
	return func(rs *RawSource) {
		rs.skipFns = append(rs.skipFns, fn)
	}
}

// NewRawSource creates an S3 client for region and lists the bucket.
func NewRawSource(region, bucket, prefix string, opts ...RawOption) (*RawSource, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return NewRawSourceFromClient(s3.New(sess), bucket, prefix, opts...)
}

// NewRawSourceFromClient lists the bucket using an existing client.
func NewRawSourceFromClient(client s3iface.S3API, bucket, prefix string, opts ...RawOption) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		bucket: bucket,
		prefix: prefix,
		s3:     client,
		objIdx: &idx,
	}
	for _, opt := range opts {
		opt(rs)
	}
	err := client.ListObjectsPages(&s3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsOutput, last bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if rs.recording(key) {
				rs.keys = append(rs.keys, key)
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing objects in %s", bucket)
	}
	sort.Strings(rs.keys)
	return rs, nil
}

func (rs *RawSource) recording(key string) bool {
	rest := strings.TrimPrefix(key, rs.prefix)
	if !strings.HasSuffix(rs.prefix, "/") {
		rest = strings.TrimPrefix(rest, "/")
	}
	if rest == "" || strings.Contains(rest, "/") {
		return false
	}
	for _, fn := range rs.skipFns {
		if fn(rest) {
			return false
		}
	}
	return true
}

// Keys returns the object keys the source will hand out.
func (rs *RawSource) Keys() []string {
	return rs.keys
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

// Name is the base name of the object key, so recordings under a prefix are
// named like files in a directory.
func (o *objReader) Name() string {
	return o.name
}

// NextReader implements etbridge.RawSource.
func (rs *RawSource) NextReader() (etbridge.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.keys) {
		return nil, io.EOF
	}
	key := rs.keys[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", key)
	}
	return &objReader{name: path.Base(key), body: result.Body}, nil
}
