// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command rehearsal is a terminal client for the rehearsal-room booking
// service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/olegiv/rehearsal-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = ""
	appBuildTime = ""
)

func versionInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func usage(w io.Writer, fs *flag.FlagSet) func() {
	return func() {
		_, _ = fmt.Fprintf(w, "rehearsal - book rehearsal rooms from the terminal\n\n")
		_, _ = fmt.Fprintf(w, "Usage: rehearsal [options] <command> [command options]\n\n")
		_, _ = fmt.Fprintf(w, "Options:\n")
		fs.SetOutput(w)
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(w, "\nCommands:\n")
		for _, c := range commands {
			_, _ = fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
		}
		_, _ = fmt.Fprintf(w, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(w, "  RR_API_BASE_URL   Booking API root (default: http://localhost:8080/api)\n")
		_, _ = fmt.Fprintf(w, "  RR_TOKEN_STORE    Token persistence: memory|file|sqlite|redis (default: file)\n")
		_, _ = fmt.Fprintf(w, "  RR_TOKEN_SECRET   Encrypts the token file when set (min 32 bytes)\n")
		_, _ = fmt.Fprintf(w, "  RR_DATA_DIR       Directory for the token file or database\n")
		_, _ = fmt.Fprintf(w, "  RR_REDIS_URL      Redis URL for the token store and room cache (optional)\n")
		_, _ = fmt.Fprintf(w, "  RR_TIMEZONE       Zone for business hours and entered times (default: Local)\n")
		_, _ = fmt.Fprintf(w, "  RR_LANG           Message language: en|es (default: en)\n")
		_, _ = fmt.Fprintf(w, "  RR_ENV            development|production (default: production)\n")
		_, _ = fmt.Fprintf(w, "  RR_LOG_LEVEL      debug|info|warn|error (default: info in development, warn otherwise)\n")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rehearsal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	showVersion := fs.Bool("version", false, "Show version information")
	fs.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := fs.Bool("help", false, "Show help information")
	fs.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	envFile := fs.String("env", ".env", "Load environment variables from this file if it exists")

	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n\n", err)
		usage(stderr, fs)()
		return 2
	}

	if *showHelp {
		usage(stdout, fs)()
		return 0
	}
	if *showVersion {
		_, _ = fmt.Fprintln(stdout, versionInfo())
		return 0
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)()
		return 2
	}

	// A missing .env file is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(stderr, "error: loading %s: %v\n", *envFile, err)
		return 1
	}

	if err := dispatch(ctx, fs.Args(), stdout, stderr); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	return 0
}
