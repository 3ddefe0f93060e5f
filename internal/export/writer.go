package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/form990"
	"github.com/a3tai/form990-extractor/internal/security"
)

const (
	DefaultFilePerm = 0o644
	DefaultDirPerm  = 0o750
)

// Writer stores encoded exports inside a confined output directory
type Writer struct {
	paths  *security.PathValidator
	logger *zap.Logger
}

// NewWriter creates a writer whose output is confined to dir
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	paths, err := security.NewPathValidator(dir)
	if err != nil {
		return nil, fmt.Errorf("export directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{paths: paths, logger: logger}, nil
}

// Dir returns the root output directory
func (w *Writer) Dir() string {
	return w.paths.Root()
}

// Write encodes result and stores it as <dir>/<base>_extracted.<format>.
// An empty dir means the writer root. The file is staged in a temporary
// file that is removed on every failure path, so no partial export is left
// behind.
func (w *Writer) Write(result *form990.ExtractionResult, format Format, dir string) (string, error) {
	start := time.Now()
	if dir == "" {
		dir = w.paths.Root()
	}
	dir, err := w.paths.ValidateDirectory(dir)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}

	data, err := Encode(result, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	target := filepath.Join(dir, FileName(result.Filename, format))
	if !w.paths.Within(target) {
		return "", fmt.Errorf("security validation failed: export path is outside %s", w.paths.Root())
	}
	if err := writeAtomic(target, data); err != nil {
		w.logger.Error("export.write.failed",
			zap.String("format", string(format)),
			zap.String("path", target),
			zap.Error(err),
		)
		return "", err
	}

	w.logger.Info("export.write.ok",
		zap.String("format", string(format)),
		zap.String("path", target),
		zap.Int("bytes", len(data)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return target, nil
}

func writeAtomic(target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err = tmp.Chmod(DefaultFilePerm); err != nil {
		return fmt.Errorf("chmod export: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}
	return nil
}
