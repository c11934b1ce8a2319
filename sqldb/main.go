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

package sqldb

import (
	"context"
	"os"

	"github.com/gazelab/etbridge"
	"github.com/pkg/errors"
)

// Main loads a directory of base CSV files into a database.
type Main struct {
	Dir       string `help:"Directory of base CSV files."`
	Database  string `help:"DSN: postgres://..., mysql://... or a sqlite file path."`
	ChunkSize int    `help:"Rows per transaction."`
	Verbose   bool   `help:"Enable verbose logging."`
}

// NewMain gets a Main with default values.
func NewMain() *Main {
	return &Main{
		Dir:       "csv_files",
		Database:  "results.db",
		ChunkSize: DefaultChunkSize,
	}
}

// Run loads every CSV file in Dir.
func (m *Main) Run() error {
	if m.Database == "" {
		return errors.New("no database given")
	}
	db, err := Open(m.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	l := NewLoader(db)
	l.ChunkSize = m.ChunkSize
	l.Log = etbridge.NewLogger(os.Stderr, m.Verbose)
	return l.LoadDir(context.Background(), m.Dir)
}
