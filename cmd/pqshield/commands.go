package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mercyshield/pqshield"
	"github.com/mercyshield/pqshield/integrity"
	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/verifier"
)

const (
	outFlag          = "out"
	publicOutFlag    = "public-out"
	evidenceFlag     = "evidence"
	reportFlag       = "report"
	unsignedFlag     = "unsigned"
	base64Flag       = "base64"
	pinnedSignerFlag = "pinned-signer"
	metricsFlag      = "metrics"
)

func keygenCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a server key pair and a device signing key pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  outFlag,
				Value: "pqshield-key.json",
				Usage: "Where to write the key file",
			},
			&cli.StringFlag{
				Name:  publicOutFlag,
				Usage: "Also write the public keys to this file",
			},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c, cfg.Stderr)

			wrap, err := wrapKey(c)
			if err != nil {
				return err
			}

			kp, err := pqshield.GenerateKeypair()
			if err != nil {
				return err
			}
			defer kp.Zero()

			f, err := pqshield.NewKeyFile(kp.Server, kp.Signer, wrap)
			if err != nil {
				return err
			}
			if err := writeKeyFile(c.String(outFlag), f, 0o600); err != nil {
				return err
			}
			log.Info().Str("path", c.String(outFlag)).Bool("sealed", f.Sealed).Msg("Wrote key file")

			if path := c.String(publicOutFlag); path != "" {
				if err := writeKeyFile(path, f.Public(), 0o644); err != nil {
					return err
				}
				log.Info().Str("path", path).Msg("Wrote public key file")
			}
			return nil
		},
	}
}

func writeKeyFile(path string, f *pqshield.KeyFile, perm os.FileMode) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), perm)
}

func evaluateCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:  "evaluate",
		Usage: "Score device evidence and print the integrity report",
		Description: "Reads evidence JSON (suspicious_files, suspicious_props, magisk_indicators,\n" +
			"play_integrity_verdict, play_token) and prints a scored report. With\n" +
			"--signing-key the report declares that key's verifying key.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  evidenceFlag,
				Value: "-",
				Usage: "Evidence JSON file, - for stdin",
			},
		},
		Action: func(c *cli.Context) error {
			data, err := readInput(cfg, c.String(evidenceFlag))
			if err != nil {
				return err
			}
			var evidence integrity.Evidence
			if err := json.Unmarshal(data, &evidence); err != nil {
				return fmt.Errorf("parse evidence: %w", err)
			}

			report := integrity.Evaluate(evidence)
			if c.String(signingKeyFlag) != "" {
				f, err := readKeyFile(c, signingKeyFlag)
				if err != nil {
					return err
				}
				pub, err := f.SignerPublicKeyBytes()
				if err != nil {
					return err
				}
				report.SetSignerKey(pub)
			}

			out, err := report.Marshal()
			if err != nil {
				return err
			}
			var indented bytes.Buffer
			if err := json.Indent(&indented, out, "", "  "); err != nil {
				return err
			}
			indented.WriteByte('\n')
			_, err = cfg.Stdout.Write(indented.Bytes())
			return err
		},
	}
}

func sealCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:  "seal",
		Usage: "Sign a report and encrypt it for the server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  reportFlag,
				Value: "-",
				Usage: "Report file, - for stdin",
			},
			&cli.StringFlag{
				Name:  outFlag,
				Value: "-",
				Usage: "Blob output file, - for stdout",
			},
			&cli.BoolFlag{
				Name:  unsignedFlag,
				Usage: "Seal without a signature",
			},
			&cli.BoolFlag{
				Name:  base64Flag,
				Usage: "Write the blob as base64url text",
			},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c, cfg.Stderr)

			report, err := readInput(cfg, c.String(reportFlag))
			if err != nil {
				return err
			}

			pubFlag := serverPublicKeyFlag
			if c.String(pubFlag) == "" {
				pubFlag = serverKeyFlag
			}
			pubFile, err := readKeyFile(c, pubFlag)
			if err != nil {
				return err
			}
			serverPK, err := pubFile.ServerPublicKeyBytes()
			if err != nil {
				return err
			}

			var opts []pqshield.BuildOption
			if !c.Bool(unsignedFlag) {
				pair, err := loadSigningKey(c)
				if err != nil {
					return err
				}
				opts = append(opts, pqshield.WithSigningKey(pair.SigningKey))
			}

			blob, err := pqshield.BuildBlob(report, serverPK, opts...)
			if err != nil {
				return err
			}
			if c.Bool(base64Flag) {
				blob = []byte(crypto.ToBase64URL(blob) + "\n")
			}
			if err := writeOutput(cfg, c.String(outFlag), blob); err != nil {
				return err
			}

			log.Info().Int("blobSize", len(blob)).Bool("signed", !c.Bool(unsignedFlag)).Msg("Sealed report")
			return nil
		},
	}
}

func loadSigningKey(c *cli.Context) (*pqshield.SigningKeyPair, error) {
	if c.String(signingKeyFlag) == "" {
		return nil, fmt.Errorf("--%s is required unless --%s is set", signingKeyFlag, unsignedFlag)
	}
	f, err := readKeyFile(c, signingKeyFlag)
	if err != nil {
		return nil, err
	}
	wrap, err := wrapKey(c)
	if err != nil {
		return nil, err
	}
	return f.SigningKeyPair(wrap)
}

// openResult is one line of open output.
type openResult struct {
	Source    string            `json:"source"`
	Outcome   verifier.Outcome  `json:"outcome"`
	Report    *integrity.Report `json:"report,omitempty"`
	SignerKey string            `json:"signerKey,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// verifierFlags are shared by open and watch.
func verifierFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  unsignedFlag,
			Usage: "Expect blobs sealed without a signature",
		},
		&cli.BoolFlag{
			Name:  base64Flag,
			Usage: "Read blobs as base64url text",
		},
		&cli.StringFlag{
			Name:  pinnedSignerFlag,
			Usage: "Key file whose signer public key every report must verify under",
		},
		&cli.BoolFlag{
			Name:  metricsFlag,
			Usage: "Print verification metrics to stderr when done",
		},
	}
}

// serverVerifier is a Verifier with the key and registry it was built from.
type serverVerifier struct {
	*verifier.Verifier
	key *pqshield.ServerKey
	reg *prometheus.Registry
}

func (s *serverVerifier) Close() {
	s.key.Close()
}

func newServerVerifier(c *cli.Context, log *zerolog.Logger) (*serverVerifier, error) {
	f, err := readKeyFile(c, serverKeyFlag)
	if err != nil {
		return nil, err
	}
	wrap, err := wrapKey(c)
	if err != nil {
		return nil, err
	}

	var openOpts []pqshield.OpenOption
	if c.Bool(unsignedFlag) {
		openOpts = append(openOpts, pqshield.WithoutSignature())
	}
	if c.String(pinnedSignerFlag) != "" {
		pinned, err := readKeyFile(c, pinnedSignerFlag)
		if err != nil {
			return nil, err
		}
		pub, err := pinned.SignerPublicKeyBytes()
		if err != nil {
			return nil, err
		}
		openOpts = append(openOpts, pqshield.WithPinnedSignerKey(pub))
	}

	key, err := f.ServerKey(wrap)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	v, err := verifier.New(key,
		verifier.WithLogger(log),
		verifier.WithRegisterer(reg),
		verifier.WithWorkers(c.Int(workersFlag)),
		verifier.WithOpenOptions(openOpts...),
	)
	if err != nil {
		key.Close()
		return nil, err
	}
	return &serverVerifier{Verifier: v, key: key, reg: reg}, nil
}

func newOpenResult(source string, res verifier.Result) openResult {
	out := openResult{Source: source, Outcome: res.Outcome, Report: res.Report}
	if res.SignerKey != nil {
		out.SignerKey = crypto.ToBase64URL(res.SignerKey)
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func openCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Decrypt and verify blobs with the server key",
		ArgsUsage: "[BLOB...]",
		Description: "Opens each blob (stdin when none is named) and prints one JSON result\n" +
			"per blob. Exits non-zero when any blob is rejected.",
		Flags: verifierFlags(),
		Action: func(c *cli.Context) error {
			log := newLogger(c, cfg.Stderr)

			v, err := newServerVerifier(c, log)
			if err != nil {
				return err
			}
			defer v.Close()

			sources := c.Args().Slice()
			if len(sources) == 0 {
				sources = []string{"-"}
			}
			blobs := make([][]byte, len(sources))
			for i, src := range sources {
				if blobs[i], err = readBlob(cfg, src, c.Bool(base64Flag)); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			results, err := v.VerifyAll(ctx, blobs)
			if err != nil {
				return err
			}

			rejected := 0
			enc := json.NewEncoder(cfg.Stdout)
			for i, res := range results {
				if res.Err != nil {
					rejected++
				}
				if err := enc.Encode(newOpenResult(sources[i], res)); err != nil {
					return err
				}
			}

			if c.Bool(metricsFlag) {
				if err := writeMetrics(cfg.Stderr, v.reg); err != nil {
					return err
				}
			}

			if rejected > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d blobs rejected", rejected, len(results)), 1)
			}
			return nil
		},
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func inspectCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Describe a key file or blob without secret material",
		Subcommands: []*cli.Command{
			{
				Name:      "key",
				Usage:     "Validate a key file and list its contents",
				ArgsUsage: "FILE",
				Action: func(c *cli.Context) error {
					data, err := readInput(cfg, c.Args().First())
					if err != nil {
						return err
					}
					f, err := pqshield.ParseKeyFile(data)
					if err != nil {
						return err
					}

					w := cfg.Stdout
					fmt.Fprintf(w, "version:           %d\n", f.Version)
					fmt.Fprintf(w, "suite:             %s\n", f.Suite)
					fmt.Fprintf(w, "created:           %s\n", f.CreatedAt.Format(time.RFC3339))
					fmt.Fprintf(w, "sealed:            %t\n", f.Sealed)
					fmt.Fprintf(w, "server public key: %s\n", present(f.ServerPublicKey))
					fmt.Fprintf(w, "server secret key: %s\n", present(f.ServerSecretKey))
					fmt.Fprintf(w, "signer public key: %s\n", present(f.SignerPublicKey))
					fmt.Fprintf(w, "signing key:       %s\n", present(f.SigningKey))
					return nil
				},
			},
			{
				Name:      "blob",
				Usage:     "Show the layout of a blob",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  base64Flag,
						Usage: "Read the blob as base64url text",
					},
				},
				Action: func(c *cli.Context) error {
					blob, err := readBlob(cfg, c.Args().First(), c.Bool(base64Flag))
					if err != nil {
						return err
					}
					if len(blob) < pqshield.MinBlobSize {
						return fmt.Errorf("%w: %d bytes, want at least %d", pqshield.ErrInvalidBlob, len(blob), pqshield.MinBlobSize)
					}

					payload := len(blob) - pqshield.MinBlobSize
					w := cfg.Stdout
					fmt.Fprintf(w, "size:       %d\n", len(blob))
					fmt.Fprintf(w, "ciphertext: %d\n", pqshield.CiphertextSize)
					fmt.Fprintf(w, "nonce:      %d\n", pqshield.NonceSize)
					fmt.Fprintf(w, "payload:    %d\n", payload)
					fmt.Fprintf(w, "tag:        %d\n", pqshield.TagSize)
					if payload >= pqshield.SignatureSize {
						fmt.Fprintf(w, "report:     %d if signed\n", payload-pqshield.SignatureSize)
					} else {
						fmt.Fprintf(w, "report:     %d (too short to be signed)\n", payload)
					}
					return nil
				},
			},
		},
	}
}

func present(field string) string {
	if field == "" {
		return "absent"
	}
	return "present"
}

func readInput(cfg *Config, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cfg.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(cfg *Config, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cfg.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readBlob(cfg *Config, path string, encoded bool) ([]byte, error) {
	data, err := readInput(cfg, path)
	if err != nil || !encoded {
		return data, err
	}
	blob, err := crypto.DecodeBase64(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return blob, nil
}
