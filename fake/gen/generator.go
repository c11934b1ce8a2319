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

package gen

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"math/rand"
)

// Generator holds state for generating random data in certain distributions.
type Generator struct {
	r   *rand.Rand
	zs  map[int]*rand.Zipf
	hsh hash.Hash
}

// NewGenerator gets a new Generator
func NewGenerator(seed int64) *Generator {
	return NewGeneratorRand(rand.New(rand.NewSource(seed)))
}

// NewGeneratorRand gets a new Generator drawing from r.
func NewGeneratorRand(r *rand.Rand) *Generator {
	return &Generator{
		r:   r,
		zs:  make(map[int]*rand.Zipf),
		hsh: sha1.New(),
	}
}

// String gets a zipfian random string from a set with the given cardinality.
// The string is lowercase so it can be used in file names.
func (g *Generator) String(length, cardinality int) string {
	if length > 32 {
		length = 32
	}

	val := g.Uint64(cardinality)

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	_, _ = g.hsh.Write(b) // no need to check err
	hashed := g.hsh.Sum(nil)
	g.hsh.Reset()
	return lowerEncoding.EncodeToString(hashed)[:length]
}

var lowerEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567")

// Uint64 gets a zipfian random uint64 with the given cardinality.
func (g *Generator) Uint64(cardinality int) uint64 {
	if cardinality <= 1 {
		return 0
	}
	z, ok := g.zs[cardinality]
	if !ok {
		// rand.Zipf generates values in [0, imax], so imax is one less than
		// the cardinality.
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return z.Uint64()
}

// Between gets a uniformly random int in [lo, hi].
func (g *Generator) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.r.Intn(hi-lo+1)
}

// Jitter gets v plus normally distributed noise with the given deviation.
func (g *Generator) Jitter(v, dev float64) float64 {
	return v + g.r.NormFloat64()*dev
}
