package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

// HashAlgo selects the digest written next to an archive.
type HashAlgo string

const (
	HashSHA256 HashAlgo = "sha256"
	HashBLAKE3 HashAlgo = "blake3"
)

// ParseHash accepts the CLI spelling of a digest algorithm. The empty
// string means sha256.
func ParseHash(s string) (HashAlgo, error) {
	switch s {
	case "", "sha256":
		return HashSHA256, nil
	case "blake3", "b3":
		return HashBLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (want sha256 or blake3)", s)
	}
}

// Extension is the digest file suffix.
func (a HashAlgo) Extension() string {
	if a == HashBLAKE3 {
		return ".b3sum"
	}
	return ".sha256sum"
}

func (a HashAlgo) newHash() hash.Hash {
	if a == HashBLAKE3 {
		return blake3.New(32, nil)
	}
	return sha256.New()
}

// Sum returns the hex digest of the file.
func (a HashAlgo) Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := a.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteDigest writes `<path><ext>` in the coreutils checksum format
// (`<hex>  <basename>`) and returns its path and the digest.
func WriteDigest(path string, algo HashAlgo) (string, string, error) {
	sum, err := algo.Sum(path)
	if err != nil {
		return "", "", err
	}
	digestPath := path + algo.Extension()
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(digestPath, []byte(line), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write digest: %w", err)
	}
	return digestPath, sum, nil
}
