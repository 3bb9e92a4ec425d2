// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/littleexplorer/atlas/internal/util"
)

func (b *Backend) mirrorPath() string {
	name := util.SafeFileName(b.key)
	if b.cfg.CompressOutput {
		return filepath.Join(b.cfg.OutputDir, name+".json.gz")
	}
	return filepath.Join(b.cfg.OutputDir, name+".json")
}

// exportJSON writes the snapshot next to the previous one and renames it into place
func (b *Backend) exportJSON(data []byte) error {
	outputPath := b.mirrorPath()

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := outputPath + ".tmp"
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(tmpPath, data)
	} else {
		err = writeJSON(tmpPath, data)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("failed to replace mirror: %w", err)
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) readMirror(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !b.cfg.CompressOutput {
		return io.ReadAll(f)
	}

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip mirror: %w", err)
	}
	defer gzReader.Close()
	return io.ReadAll(gzReader)
}

func writeJSON(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Sync()
}

func writeGzipJSON(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if _, err := gzWriter.Write(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to write gzip: %w", err)
	}
	return gzWriter.Close()
}
