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

// Package etbridge converts eye-tracking recordings from several vendor
// devices into one normalized table per recording, and gets those tables
// into a relational database for analysis.
//
// A conversion moves through the stages below. Interfaces and the core
// algorithm live in this package, and implementations which rely on other
// software are in sub-packages.
//
// 1. RawSource
//
//    A RawSource hands out recordings one at a time, wherever they live: a
//    local directory (package file) or an S3 bucket (package aws/s3). A
//    RawSource does not look inside the data it returns.
//
// 2. TrialSource
//
//    A TrialSource decodes the trials of one recording. Parsing the vendor
//    formats themselves is the job of an external reader; package json reads
//    the per-trial records such a reader emits.
//
// 3. Annotation
//
//    Each trial carries a timeline of sample timestamps and interval lists
//    for fixations, saccades and blinks. Annotate stamps every sample with
//    the zero-based sequence id of the interval covering it, or NoEvent.
//    For SMI recordings the saccade channel is derived from the gaps between
//    fixations with AnnotateGaps.
//
// 4. Converter
//
//    The Converter names each trial's stimulus, applies the device strategy
//    and the failure Policy, and builds Rows in the fixed Columns schema.
//
// 5. Sink
//
//    A Sink persists the rows of a recording. Package csv writes base CSV
//    files, and package sqldb later copies them into SQL tables in chunks.
//
// Package convert wires all of this together along with the experiment
// metadata document (packages metadata, boltdb and leveldb).
package etbridge
