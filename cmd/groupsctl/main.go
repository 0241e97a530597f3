// Package main is groupsctl, a command line front end to the groups
// transformer: it reads a grouped result set as JSON and prints the nested
// tree.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vyrodovalexey/avagroups/internal/groups"
	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("groupsctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	input := fs.String("input", "", "Input file (defaults to stdin)")
	pretty := fs.Bool("pretty", false, "Indent the output")
	verbose := fs.Bool("v", false, "Log transformer diagnostics to stderr")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "groupsctl version %s (%s)\n", version, gitCommit)
		return 0
	}

	r := stdin
	if *input != "" && *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(stderr, "groupsctl: %v\n", err)
			return 1
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	logger := observability.NopLogger()
	if *verbose {
		var err error
		logger, err = observability.NewLogger(observability.LogConfig{Level: "debug", Format: "console", Output: "stderr"})
		if err != nil {
			fmt.Fprintf(stderr, "groupsctl: %v\n", err)
			return 1
		}
		defer func() { _ = logger.Sync() }()
	}

	tree, err := groups.NewResultTransformer(groups.WithLogger(logger)).Transform(context.Background(), r)
	if err != nil {
		fmt.Fprintf(stderr, "groupsctl: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(tree); err != nil {
		fmt.Fprintf(stderr, "groupsctl: failed to write output: %v\n", err)
		return 1
	}
	return 0
}
