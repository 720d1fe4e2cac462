package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
)

const blobPattern = "*.bin"

func watchCommand(cfg *Config) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Verify blobs as they arrive in a directory",
		ArgsUsage: "DIR",
		Description: "Prints one JSON result for every " + blobPattern + " file created in DIR until\n" +
			"interrupted. Producers should write elsewhere and rename into DIR\n" +
			"so that only complete blobs are seen.",
		Flags: verifierFlags(),
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				return fmt.Errorf("watch: directory argument is required")
			}

			log := newLogger(c, cfg.Stderr)
			v, err := newServerVerifier(c, log)
			if err != nil {
				return err
			}
			defer v.Close()

			w, err := newDirWatcher(dir)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Str("dir", dir).Msg("Watching for blobs")
			enc := json.NewEncoder(cfg.Stdout)
			for {
				select {
				case path, ok := <-w.created:
					if !ok {
						return nil
					}
					blob, err := readBlob(cfg, path, c.Bool(base64Flag))
					if err != nil {
						log.Err(err).Str("path", path).Msg("Failed to read blob")
						continue
					}
					if err := enc.Encode(newOpenResult(path, v.Verify(blob))); err != nil {
						return err
					}
				case err, ok := <-w.errors:
					if !ok {
						return nil
					}
					log.Err(err).Msg("Directory watcher error")
				case <-ctx.Done():
					if c.Bool(metricsFlag) {
						return writeMetrics(cfg.Stderr, v.reg)
					}
					return nil
				}
			}
		},
	}
}

// dirWatcher reports blob files created in one directory.
type dirWatcher struct {
	watcher  *fsnotify.Watcher
	created  chan string
	errors   chan error
	shutdown chan struct{}
}

func newDirWatcher(dir string) (*dirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &dirWatcher{
		watcher:  watcher,
		created:  make(chan string),
		errors:   make(chan error),
		shutdown: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *dirWatcher) run() {
	defer close(w.created)
	defer close(w.errors)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if match, _ := filepath.Match(blobPattern, filepath.Base(event.Name)); !match {
				continue
			}
			select {
			case w.created <- event.Name:
			case <-w.shutdown:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.shutdown:
				return
			}
		case <-w.shutdown:
			return
		}
	}
}

// Close stops the run loop and releases the watcher.
func (w *dirWatcher) Close() error {
	close(w.shutdown)
	return w.watcher.Close()
}
