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
)

// NoEvent is the annotation value of a sample which no interval of a channel
// covers.
const NoEvent = -1

// Timestamp is the set of types a sample timeline may be recorded in.
type Timestamp interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Interval is a single event occurrence bounded by two sample timestamps.
// Both ends are inclusive.
type Interval[T Timestamp] struct {
	Start T
	End   T
}

// LookupError is returned when an interval boundary does not appear in the
// timeline. It usually means the vendor reader produced events which do not
// line up with its samples.
type LookupError struct {
	// Interval is the position of the offending interval in its channel.
	Interval int
	// Boundary is "start" or "end".
	Boundary string
	Value    interface{}
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("interval %d: %s timestamp %v not found in timeline", e.Interval, e.Boundary, e.Value)
}

// ValueError is returned for timelines which are not non-decreasing.
type ValueError struct {
	Index int
	Value interface{}
	Prev  interface{}
}

func (e *ValueError) Error() string {
	if e.Prev == nil {
		return fmt.Sprintf("timeline value %v at index %d is not a number", e.Value, e.Index)
	}
	return fmt.Sprintf("timeline decreases at index %d: %v after %v", e.Index, e.Value, e.Prev)
}

// Timeline is a validated sample timeline which can annotate any number of
// channels. The timestamp index is built once, so annotating the channels of
// a trial costs one pass over the samples plus one pass per channel.
type Timeline[T Timestamp] struct {
	ts  []T
	pos map[T]int
}

// NewTimeline validates ts and indexes the first occurrence of each
// timestamp. ts is retained, not copied.
func NewTimeline[T Timestamp](ts []T) (*Timeline[T], error) {
	pos := make(map[T]int, len(ts))
	for i, v := range ts {
		if v != v {
			return nil, &ValueError{Index: i, Value: v}
		}
		if i > 0 && v < ts[i-1] {
			return nil, &ValueError{Index: i, Value: v, Prev: ts[i-1]}
		}
		if _, ok := pos[v]; !ok {
			pos[v] = i
		}
	}
	return &Timeline[T]{ts: ts, pos: pos}, nil
}

// Len returns the number of samples.
func (tl *Timeline[T]) Len() int { return len(tl.ts) }

// Index returns the first index holding v.
func (tl *Timeline[T]) Index(v T) (int, bool) {
	i, ok := tl.pos[v]
	return i, ok
}

// Annotate returns one sequence id per sample: the position in intervals of
// the interval covering the sample, or NoEvent. When intervals overlap the
// later one wins. If any boundary is missing a *LookupError is returned and
// no array.
func (tl *Timeline[T]) Annotate(intervals []Interval[T]) ([]int, error) {
	seq := make([]int, len(tl.ts))
	for i := range seq {
		seq[i] = NoEvent
	}
	for k, iv := range intervals {
		start, ok := tl.pos[iv.Start]
		if !ok {
			return nil, &LookupError{Interval: k, Boundary: "start", Value: iv.Start}
		}
		end, ok := tl.pos[iv.End]
		if !ok {
			return nil, &LookupError{Interval: k, Boundary: "end", Value: iv.End}
		}
		for i := start; i <= end; i++ {
			seq[i] = k
		}
	}
	return seq, nil
}

// Annotate is a convenience for annotating a single channel against a
// timeline.
func Annotate[T Timestamp](timestamps []T, intervals []Interval[T]) ([]int, error) {
	tl, err := NewTimeline(timestamps)
	if err != nil {
		return nil, err
	}
	return tl.Annotate(intervals)
}

// AnnotateGaps derives a channel from the uncovered stretches of an
// annotated one. Every maximal run of NoEvent slots with covered slots on
// both sides becomes one event, numbered in order. Runs before the first or
// after the last covered slot stay NoEvent.
func AnnotateGaps(seq []int) []int {
	gaps := make([]int, len(seq))
	for i := range gaps {
		gaps[i] = NoEvent
	}
	next := 0
	last := -1 // index of the most recent covered slot
	for i, v := range seq {
		if v == NoEvent {
			continue
		}
		if last >= 0 && i-last > 1 {
			for j := last + 1; j < i; j++ {
				gaps[j] = next
			}
			next++
		}
		last = i
	}
	return gaps
}
