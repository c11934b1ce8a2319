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
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gazelab/etbridge/convert"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// ConvertMain is wrapped by NewConvertCommand and only exported for testing
// purposes.
var ConvertMain *convert.Main

// NewConvertCommand returns a new cobra command wrapping ConvertMain.
func NewConvertCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	ConvertMain = convert.NewMain()
	convertCommand := &cobra.Command{
		Use:   "convert",
		Short: "convert - annotate recordings and write base CSV files",
		Long: `Reads line-delimited JSON trial records from a recording file,
a directory of recordings, or an S3 bucket. Each trial is
annotated with fixation, saccade and blink sequence ids and
written as base CSV. In directory mode the experiment document
is updated with the subjects and stimuli and the CSV files are
loaded into a SQL database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			err = ConvertMain.RunContext(ctx)
			if err != nil {
				return err
			}
			for _, res := range ConvertMain.Results {
				fmt.Fprintln(stdout, res)
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := convertCommand.Flags()
	err = commandeer.Flags(flags, ConvertMain)
	if err != nil {
		panic(err)
	}
	return convertCommand
}

func init() {
	subcommandFns["convert"] = NewConvertCommand
}
