package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Format is an archive compression format.
type Format string

const (
	FormatNone Format = "none"
	FormatXz   Format = "xz"
	FormatZstd Format = "zst"
	FormatGzip Format = "gz"
)

// ParseFormat accepts the CLI spelling of a format. The empty string means
// FormatNone.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "none":
		return FormatNone, nil
	case "xz":
		return FormatXz, nil
	case "zst", "zstd":
		return FormatZstd, nil
	case "gz", "gzip":
		return FormatGzip, nil
	default:
		return "", fmt.Errorf("unknown archive format %q (want xz, zst, gz or none)", s)
	}
}

// Extension is the file suffix, including the leading ".tar".
func (f Format) Extension() string {
	if f == FormatNone {
		return ""
	}
	return ".tar." + string(f)
}

// compressor wraps w in the format's encoder. Closing the result flushes
// the encoder but leaves w open.
func (f Format) compressor(w io.Writer) (io.WriteCloser, error) {
	switch f {
	case FormatXz:
		return xz.NewWriter(w)
	case FormatZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case FormatGzip:
		return pgzip.NewWriterLevel(w, pgzip.BestCompression)
	default:
		return nil, fmt.Errorf("format %q does not compress", f)
	}
}

// Decompressor opens a reader for an archive written in format f.
func (f Format) Decompressor(r io.Reader) (io.ReadCloser, error) {
	switch f {
	case FormatXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case FormatGzip:
		return pgzip.NewReader(r)
	default:
		return nil, fmt.Errorf("format %q does not compress", f)
	}
}
