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

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gazelab/etbridge/test"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestSetAllConfig(t *testing.T) {
	d := test.MustTempDir(t, "testcmdconfig")
	conf := test.MustWriteFile(t, d, "conf.toml", `
device = "smi"
concurrency = 7
data = "from-file"
`)
	var device, data, dsn string
	var concurrency int
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&device, "device", "eyelink", "")
	flags.StringVar(&data, "data", "", "")
	flags.StringVar(&dsn, "database", "", "")
	flags.IntVar(&concurrency, "concurrency", 1, "")
	flags.String("config", "", "")
	test.ErrNil(t, flags.Parse([]string{"--config", conf, "--data", "from-flag"}), "parsing")

	os.Setenv("ETBRIDGETEST_CONCURRENCY", "3")
	os.Setenv("ETBRIDGETEST_DATABASE", "postgres://db")
	defer os.Unsetenv("ETBRIDGETEST_CONCURRENCY")
	defer os.Unsetenv("ETBRIDGETEST_DATABASE")

	test.ErrNil(t, setAllConfig(viper.New(), flags, "ETBRIDGETEST"), "setting config")
	test.MustBe(t, "smi", device, "from config file")
	test.MustBe(t, "from-flag", data, "flag beats file")
	test.MustBe(t, 3, concurrency, "env beats file")
	test.MustBe(t, "postgres://db", dsn, "from env")
}

func TestSetAllConfigUnknownKey(t *testing.T) {
	d := test.MustTempDir(t, "testcmdconfig")
	conf := test.MustWriteFile(t, d, "conf.toml", `
device = "smi"
devise = "tobii"

[s3]
bucket = "recordings"
`)
	var device string
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&device, "device", "eyelink", "")
	flags.String("config", "", "")
	test.ErrNil(t, flags.Parse([]string{"--config", conf}), "parsing")
	err := setAllConfig(viper.New(), flags, "ETBRIDGETEST")
	if err == nil || !strings.Contains(err.Error(), "unknown options: devise, s3.bucket") {
		t.Fatalf("expected unknown option error, got %v", err)
	}
}

func TestSetAllConfigMissingFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	test.ErrNil(t, flags.Parse([]string{"--config", filepath.Join(test.MustTempDir(t, "testcmd"), "nope.toml")}), "parsing")
	if err := setAllConfig(viper.New(), flags, "ETBRIDGETEST"); err == nil || !strings.Contains(err.Error(), "reading configuration file") {
		t.Fatalf("expected config file error, got %v", err)
	}
}

func TestRootCommand(t *testing.T) {
	out := &bytes.Buffer{}
	rc := NewRootCommand(nil, out, out)
	names := make([]string, 0)
	for _, c := range rc.Commands() {
		names = append(names, c.Name())
	}
	test.MustBe(t, []string{"convert", "gen", "load"}, names)
}
