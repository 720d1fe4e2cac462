package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mercyshield/pqshield"
	"github.com/mercyshield/pqshield/verifier"
)

const (
	configFlag          = "config"
	logLevelFlag        = "loglevel"
	logFormatFlag       = "logformat"
	serverKeyFlag       = "server-key"
	serverPublicKeyFlag = "server-public-key"
	signingKeyFlag      = "signing-key"
	wrapKeyFlag         = "wrap-key"
	workersFlag         = "workers"
)

// DefaultConfigFiles are the file names tried in each of
// DefaultConfigSearchDirectories when no --config is given.
var DefaultConfigFiles = []string{"pqshield.yml", "pqshield.yaml"}

// DefaultConfigSearchDirectories returns the directories searched for a
// configuration file, in order.
func DefaultConfigSearchDirectories() []string {
	return []string{".", "~/.pqshield", "/etc/pqshield"}
}

// fileConfig is the YAML configuration file. Key paths are resolved relative
// to the file.
type fileConfig struct {
	ServerKey       string `yaml:"server_key"`
	ServerPublicKey string `yaml:"server_public_key"`
	SigningKey      string `yaml:"signing_key"`
	LogLevel        string `yaml:"log_level"`
	Workers         int    `yaml:"workers"`
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Usage:   "YAML configuration file",
			EnvVars: []string{"PQSHIELD_CONFIG"},
		},
		&cli.StringFlag{
			Name:    logLevelFlag,
			Value:   "info",
			Usage:   "Application logging level {debug, info, warn, error, fatal}",
			EnvVars: []string{"PQSHIELD_LOGLEVEL"},
		},
		&cli.StringFlag{
			Name:    logFormatFlag,
			Value:   "console",
			Usage:   "Log output format {console, json}",
			EnvVars: []string{"PQSHIELD_LOGFORMAT"},
		},
		&cli.StringFlag{
			Name:    serverKeyFlag,
			Usage:   "Key file holding the server secret key",
			EnvVars: []string{"PQSHIELD_SERVER_KEY"},
		},
		&cli.StringFlag{
			Name:    serverPublicKeyFlag,
			Usage:   "Key file holding the server public key",
			EnvVars: []string{"PQSHIELD_SERVER_PUBLIC_KEY"},
		},
		&cli.StringFlag{
			Name:    signingKeyFlag,
			Usage:   "Key file holding the device signing key",
			EnvVars: []string{"PQSHIELD_SIGNING_KEY"},
		},
		&cli.StringFlag{
			Name:    wrapKeyFlag,
			Usage:   "Hex-encoded 32-byte key sealing the secret fields of key files",
			EnvVars: []string{"PQSHIELD_WRAP_KEY"},
		},
		&cli.IntFlag{
			Name:    workersFlag,
			Value:   verifier.DefaultWorkers,
			Usage:   "Number of blobs opened in parallel",
			EnvVars: []string{"PQSHIELD_WORKERS"},
		},
	}
}

// loadConfigFile fills every flag not given on the command line or in the
// environment from the configuration file.
func loadConfigFile(c *cli.Context) error {
	path, err := findConfigFile(c.String(configFlag))
	if err != nil || path == "" {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	values := map[string]string{
		serverKeyFlag:       resolvePath(dir, fc.ServerKey),
		serverPublicKeyFlag: resolvePath(dir, fc.ServerPublicKey),
		signingKeyFlag:      resolvePath(dir, fc.SigningKey),
		logLevelFlag:        fc.LogLevel,
	}
	if fc.Workers != 0 {
		values[workersFlag] = strconv.Itoa(fc.Workers)
	}

	for name, value := range values {
		if value == "" || c.IsSet(name) {
			continue
		}
		if err := c.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %s: %w", path, name, err)
		}
	}
	return nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		return homedir.Expand(explicit)
	}
	for _, configDir := range DefaultConfigSearchDirectories() {
		dirPath, err := homedir.Expand(configDir)
		if err != nil {
			continue
		}
		for _, name := range DefaultConfigFiles {
			path := filepath.Join(dirPath, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}
	return "", nil
}

// resolvePath expands a leading ~ and makes relative paths relative to dir.
func resolvePath(dir, path string) string {
	if path == "" {
		return path
	}
	if expanded, err := homedir.Expand(path); err == nil {
		path = expanded
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// wrapKey decodes --wrap-key. It returns nil when the flag is unset.
func wrapKey(c *cli.Context) ([]byte, error) {
	s := c.String(wrapKeyFlag)
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", wrapKeyFlag, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("--%s: got %d bytes, want 32", wrapKeyFlag, len(key))
	}
	return key, nil
}

// readKeyFile parses the key file named by flag.
func readKeyFile(c *cli.Context, flag string) (*pqshield.KeyFile, error) {
	path := c.String(flag)
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := pqshield.ParseKeyFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
