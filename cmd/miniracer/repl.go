package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	miniracer "github.com/bpcreech/go-mini-racer"
)

func newReplCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive JavaScript prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctxID, err := opts.newEngineContext()
			if err != nil {
				return err
			}
			defer miniracer.FreeContext(ctxID)

			out := cmd.OutOrStdout()
			prompt := color.New(color.FgCyan).Sprint("js> ")
			good := color.New(color.FgGreen)
			bad := color.New(color.FgRed)

			fmt.Fprintln(out, "miniracer", miniracer.Version(), "(.exit to quit, .heap for heap stats)")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, prompt)
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())

				switch line {
				case "":
					continue
				case ".exit":
					return nil
				case ".heap":
					h := await(ctxID, 0, func(done func(*miniracer.Handle)) uint64 {
						return miniracer.HeapStats(ctxID, done)
					})
					fmt.Fprintln(out, string(h.Bytes))
					miniracer.FreeValue(ctxID, h)
					continue
				}

				h := evalSource(ctxID, line, opts.timeout)
				text, isErr := renderHandle(h)
				if isErr {
					bad.Fprintln(out, text)
				} else {
					good.Fprintln(out, text)
				}
				miniracer.FreeValue(ctxID, h)
			}
		},
	}
}
