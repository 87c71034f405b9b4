package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// epoch is the modification time written for every entry.
var epoch = time.Unix(0, 0).UTC()

// WriteTar writes the files, given as slash-separated paths relative to
// root, as a tar stream. Entries are sorted and carry a fixed mtime and
// root ownership so identical trees produce identical streams. Regular
// files and symlinks are supported.
func WriteTar(ctx context.Context, w io.Writer, root string, files []string) error {
	sorted := slices.Clone(files)
	slices.Sort(sorted)

	tw := tar.NewWriter(w)
	for _, rel := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addEntry(tw, root, rel); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	return nil
}

func addEntry(tw *tar.Writer, root, rel string) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	var link string
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		if link, err = os.Readlink(path); err != nil {
			return fmt.Errorf("failed to read link %s: %w", rel, err)
		}
	case info.Mode().IsRegular():
	default:
		return fmt.Errorf("unsupported file type for %s: %s", rel, info.Mode().Type())
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", rel, err)
	}
	hdr.Name = rel
	hdr.ModTime = epoch
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.Format = tar.FormatPAX
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", rel, err)
	}
	if link != "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", rel, err)
	}
	return nil
}

// Create writes the compressed archive of files to dest.
func Create(ctx context.Context, dest, root string, files []string, format Format) error {
	if format == FormatNone {
		return fmt.Errorf("archive %s: no format", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp)
	defer f.Close()

	cw, err := format.compressor(f)
	if err != nil {
		return err
	}
	if err := WriteTar(ctx, cw, root, files); err != nil {
		cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to flush %s compressor: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return os.Rename(tmp, dest)
}
