// Command pqshield generates keys, scores device evidence, and seals and
// opens attestation blobs from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "DEV"

const envFileVar = "PQSHIELD_ENV_FILE"

// Config holds the process streams, replaced in tests.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config wired to the process streams.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func run(args []string, cfg *Config) error {
	return runContext(context.Background(), args, cfg)
}

func runContext(ctx context.Context, args []string, cfg *Config) error {
	if err := loadEnvFile(); err != nil {
		return err
	}
	return newApp(cfg).RunContext(ctx, args)
}

// loadEnvFile loads .env, or the file named by PQSHIELD_ENV_FILE, into the
// process environment. Variables that are already set win.
func loadEnvFile() error {
	path := os.Getenv(envFileVar)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func newApp(cfg *Config) *cli.App {
	app := &cli.App{
		Name:      "pqshield",
		Usage:     "Post-quantum sealed device attestation",
		Version:   Version,
		Reader:    cfg.Stdin,
		Writer:    cfg.Stdout,
		ErrWriter: cfg.Stderr,
		Flags:     globalFlags(),
		Before:    loadConfigFile,
		Commands: []*cli.Command{
			keygenCommand(cfg),
			evaluateCommand(cfg),
			sealCommand(cfg),
			openCommand(cfg),
			inspectCommand(cfg),
			watchCommand(cfg),
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app
}

func fatal(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	os.Exit(1)
}
