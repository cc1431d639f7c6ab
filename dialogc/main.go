// Command dialogc compiles an exported dialog document offline and reports
// the compile results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/dialog/compiler"
	"github.com/meikuraledutech/dialog/config"
	"github.com/meikuraledutech/dialog/exchange"
	"github.com/meikuraledutech/dialog/internal/ctxlog"
)

// ExitError carries the process exit code of a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW, errW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("dialogc", flag.ContinueOnError)
	flagSet.SetOutput(errW)
	flagSet.Usage = func() {
		fmt.Fprint(errW, `
dialogc - compile a dialog document into its runtime tree.

Usage:
  dialogc [options] DOCUMENT

Arguments:
  DOCUMENT
    Path to an .xml or .hcl dialog document.

Options:
`)
		flagSet.PrintDefaults()
	}

	formatFlag := flagSet.String("format", "", "Document format: 'xml' or 'hcl'. Defaults to the file extension.")
	outFlag := flagSet.String("o", "", "Write the compiled tree as JSON to this file ('-' for stdout).")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "expected exactly one document"}
	}
	path := flagSet.Arg(0)

	format := *formatFlag
	if format == "" {
		format = filepath.Ext(path)
	}
	codec, err := exchange.ForFormat(format)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	logger := config.NewLogger(strings.ToLower(*logLevelFlag), strings.ToLower(*logFormatFlag), errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	g, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if g.ID == "" {
		g.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	logger.Debug("document decoded", "path", path, "nodes", len(g.Nodes), "edges", len(g.Edges))

	c := compiler.New(compiler.NewAsset(g.ID, path))
	res := c.Compile(ctx, g)
	for _, m := range res.Log.Messages() {
		fmt.Fprintln(outW, m)
	}

	if res.Installed && *outFlag != "" {
		out, err := json.MarshalIndent(res.Tree, "", "  ")
		if err != nil {
			return fmt.Errorf("encode tree: %w", err)
		}
		out = append(out, '\n')
		if *outFlag == "-" {
			if _, err := outW.Write(out); err != nil {
				return err
			}
		} else if err := os.WriteFile(*outFlag, out, 0o644); err != nil {
			return fmt.Errorf("write tree: %w", err)
		}
	}

	if res.Log.HasErrors() {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%s: %d error(s), %d warning(s)", path, res.Log.NumErrors(), res.Log.NumWarnings())}
	}
	fmt.Fprintf(outW, "%s: compiled %d node(s), %d warning(s)\n", path, res.Tree.Len(), res.Log.NumWarnings())
	return nil
}
