//go:build integration

package integration

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/mercyshield/pqshield"
)

var (
	keyFilePath string
	wrapKeyHex  string
	blobDir     string
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	keyFilePath = os.Getenv("PQSHIELD_SERVER_KEY")
	wrapKeyHex = os.Getenv("PQSHIELD_WRAP_KEY")
	blobDir = os.Getenv("PQSHIELD_BLOB_DIR")

	if keyFilePath == "" {
		os.Stderr.WriteString("Skipping integration tests: PQSHIELD_SERVER_KEY not set\n")
		os.Exit(0)
	}

	if blobDir == "" {
		os.Stderr.WriteString("Skipping integration tests: PQSHIELD_BLOB_DIR not set\n")
		os.Exit(0)
	}

	os.Stderr.WriteString("Running integration tests...\n")
	os.Stderr.WriteString("Blob directory: " + blobDir + "\n")

	os.Exit(m.Run())
}

func loadKeyFile(t *testing.T) *pqshield.KeyFile {
	t.Helper()

	data, err := os.ReadFile(keyFilePath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	f, err := pqshield.ParseKeyFile(data)
	if err != nil {
		t.Fatalf("ParseKeyFile() error = %v", err)
	}
	return f
}

func newServerKey(t *testing.T) *pqshield.ServerKey {
	t.Helper()

	var wrap []byte
	if wrapKeyHex != "" {
		var err error
		if wrap, err = hex.DecodeString(wrapKeyHex); err != nil {
			t.Fatalf("PQSHIELD_WRAP_KEY: %v", err)
		}
	}

	key, err := loadKeyFile(t).ServerKey(wrap)
	if err != nil {
		t.Fatalf("ServerKey() error = %v", err)
	}
	t.Cleanup(key.Close)
	return key
}

// deviceBlobs returns the *.bin blobs captured from devices.
func deviceBlobs(t *testing.T) (names []string, blobs [][]byte) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(blobDir, "*.bin"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(paths) == 0 {
		t.Skipf("no *.bin blobs in %s", blobDir)
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", p, err)
		}
		names = append(names, filepath.Base(p))
		blobs = append(blobs, data)
	}
	return names, blobs
}
