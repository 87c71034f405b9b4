package testutil

import (
	"os"
	"path/filepath"
)

func installFiles(dir string, files []string) error {
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(f), 0o644); err != nil {
			return err
		}
	}
	return nil
}
