// Package attach turns local image files into inline photo references.
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps a single attachment at 5 MiB
const DefaultMaxBytes int64 = 5 << 20

var (
	// ErrNotImage is returned when the detected content type is not an image
	ErrNotImage = errors.New("not an image")

	// ErrTooLarge is returned when a file exceeds the size limit
	ErrTooLarge = errors.New("attachment too large")
)

// Attacher reads image files up to a size limit.
type Attacher struct {
	maxBytes int64
}

// New creates an Attacher. maxBytes <= 0 uses DefaultMaxBytes.
func New(maxBytes int64) *Attacher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Attacher{maxBytes: maxBytes}
}

// MaxBytes returns the size limit.
func (a *Attacher) MaxBytes() int64 {
	return a.maxBytes
}

// File reads path and returns it as a data URL.
func (a *Attacher) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > a.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, path, info.Size(), a.maxBytes)
	}

	return a.Read(f)
}

// Read consumes r and returns its content as a data URL.
func (a *Attacher) Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, a.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > a.maxBytes {
		return "", fmt.Errorf("%w: limit %d bytes", ErrTooLarge, a.maxBytes)
	}
	return DataURL(data)
}

// DataURL detects the MIME type of data and encodes it as data:<mime>;base64,<payload>.
func DataURL(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	if !isImage(mtype) {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	mime := mtype.String()
	// drop parameters such as charset
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// IsDataURL reports whether ref is an inline reference rather than a remote URL.
func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
