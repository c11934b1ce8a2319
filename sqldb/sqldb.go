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

// Package sqldb copies base CSV files into SQL tables, a chunk of rows at a
// time.
package sqldb

import (
	"context"
	"io"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gazelab/etbridge"
	"github.com/gazelab/etbridge/csv"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultChunkSize is the number of CSV rows appended per transaction.
const DefaultChunkSize = 100000

// IndexColumn numbers the rows of each loaded file from 1.
const IndexColumn = "Index"

// StatRows is the count of rows inserted.
const StatRows = "etbridge.sql.rows"

// Open connects to the database named by dsn. DSNs starting with "postgres"
// or "mysql" use those drivers (the "mysql://" prefix is stripped); anything
// else is a sqlite file path.
func Open(dsn string) (*gorm.DB, error) {
	dial, isSQLite := dialector(dsn)
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "getting sql.DB")
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return db, nil
}

func dialector(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return postgres.Open(dsn), false
	case strings.HasPrefix(dsn, "mysql"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), false
	default:
		return sqlite.Open(dsn), true
	}
}

// Loader appends CSV files to tables named after them.
type Loader struct {
	DB        *gorm.DB
	ChunkSize int
	Log       etbridge.Logger
	Stats     etbridge.Statter
}

// NewLoader gets a Loader with the default chunk size which logs nothing.
func NewLoader(db *gorm.DB) *Loader {
	return &Loader{
		DB:        db,
		ChunkSize: DefaultChunkSize,
		Log:       etbridge.NopLogger{},
		Stats:     etbridge.NopStatter{},
	}
}

// TableName derives a table name from a CSV file name: extensions are dropped
// and spaces become underscores.
func TableName(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, csv.GzipExt)
	name = strings.TrimSuffix(name, ".csv")
	return strings.Replace(name, " ", "_", -1)
}

var columnReplacer = strings.NewReplacer(" ", "_", "/", "", "(", "", ")", "")

// ColumnName makes a CSV header usable as a column name: spaces become
// underscores and slashes and parentheses are removed.
func ColumnName(header string) string {
	return columnReplacer.Replace(header)
}

// LoadDir loads every .csv and .csv.gz file in dir in name order.
func (l *Loader) LoadDir(ctx context.Context, dir string) error {
	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "reading directory")
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		n := info.Name()
		if info.Mode().IsRegular() && (strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".csv"+csv.GzipExt)) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Log.Printf("creating sql table for %s", n)
		if _, err := l.LoadFile(ctx, filepath.Join(dir, n)); err != nil {
			return errors.Wrapf(err, "loading %s", n)
		}
	}
	return nil
}

// LoadFile appends the rows of the CSV file at path to its table, creating
// the table from the first chunk when it does not exist. It returns the
// number of rows loaded.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	chunkSize := l.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	cr, err := csv.Open(path)
	if err != nil {
		return 0, err
	}
	defer cr.Close()

	table := TableName(path)
	columns := make([]string, 0, len(cr.Header())+1)
	columns = append(columns, IndexColumn)
	for _, h := range cr.Header() {
		columns = append(columns, ColumnName(h))
	}

	var types []columnType
	index := 1
	for {
		chunk, err := cr.Next(chunkSize)
		if err == io.EOF {
			break
		} else if err != nil {
			return index - 1, err
		}
		if types == nil {
			types = inferTypes(chunk, len(cr.Header()))
			if err := l.createTable(ctx, table, columns, types); err != nil {
				return 0, err
			}
		}
		if err := l.insertChunk(ctx, table, columns, types, chunk, index); err != nil {
			return index - 1, errors.Wrapf(err, "inserting rows %d-%d", index, index+len(chunk)-1)
		}
		index += len(chunk)
		l.Stats.Count(StatRows, int64(len(chunk)), 1)
		l.Log.Debugf("%s: %d rows loaded", table, index-1)
	}
	return index - 1, nil
}

type columnType int

const (
	typeInteger columnType = iota
	typeReal
	typeText
)

// inferTypes picks the narrowest type holding every non-empty value of each
// column. Columns with no values are text.
func inferTypes(chunk [][]string, width int) []columnType {
	types := make([]columnType, width)
	seen := make([]bool, width)
	for _, row := range chunk {
		for i, v := range row {
			if v == "" || types[i] == typeText {
				continue
			}
			seen[i] = true
			if types[i] == typeInteger {
				if _, err := strconv.ParseInt(v, 10, 64); err == nil {
					continue
				}
				types[i] = typeReal
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				types[i] = typeText
			}
		}
	}
	for i := range types {
		if !seen[i] {
			types[i] = typeText
		}
	}
	return types
}

func (l *Loader) sqlType(t columnType) string {
	dialect := l.DB.Dialector.Name()
	switch t {
	case typeInteger:
		if dialect == "sqlite" {
			return "INTEGER"
		}
		return "BIGINT"
	case typeReal:
		switch dialect {
		case "postgres":
			return "DOUBLE PRECISION"
		case "mysql":
			return "DOUBLE"
		}
		return "REAL"
	default:
		return "TEXT"
	}
}

func (l *Loader) quote(name string) string {
	sb := &strings.Builder{}
	l.DB.Dialector.QuoteTo(sb, name)
	return sb.String()
}

func (l *Loader) createTable(ctx context.Context, table string, columns []string, types []columnType) error {
	sb := &strings.Builder{}
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(l.quote(table))
	sb.WriteString(" (")
	sb.WriteString(l.quote(columns[0]))
	sb.WriteString(" ")
	sb.WriteString(l.sqlType(typeInteger))
	for i, c := range columns[1:] {
		sb.WriteString(", ")
		sb.WriteString(l.quote(c))
		sb.WriteString(" ")
		sb.WriteString(l.sqlType(types[i]))
	}
	sb.WriteString(")")
	err := l.DB.WithContext(ctx).Exec(sb.String()).Error
	return errors.Wrapf(err, "creating table %s", table)
}

// maxParams bounds the placeholders of one INSERT statement.
const maxParams = 30000

func (l *Loader) insertChunk(ctx context.Context, table string, columns []string, types []columnType, chunk [][]string, index int) error {
	perStmt := maxParams / len(columns)
	if perStmt < 1 {
		perStmt = 1
	}
	prefix := &strings.Builder{}
	prefix.WriteString("INSERT INTO ")
	prefix.WriteString(l.quote(table))
	prefix.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			prefix.WriteString(", ")
		}
		prefix.WriteString(l.quote(c))
	}
	prefix.WriteString(") VALUES ")
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(chunk); start += perStmt {
			end := min(start+perStmt, len(chunk))
			sb := &strings.Builder{}
			sb.WriteString(prefix.String())
			args := make([]interface{}, 0, (end-start)*len(columns))
			for i, row := range chunk[start:end] {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(placeholders)
				args = append(args, index+start+i)
				for j, v := range row {
					args = append(args, convert(v, types[j]))
				}
			}
			if err := tx.Exec(sb.String(), args...).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// convert turns a CSV field into a value for a column of type t. Values
// which do not fit the inferred type are kept as text.
func convert(v string, t columnType) interface{} {
	if v == "" {
		return nil
	}
	switch t {
	case typeInteger:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		fallthrough
	case typeReal:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
