package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/a3tai/form990-extractor/internal/security"
)

// Probe builds a candidate handle for the file at path. The media type is
// sniffed from the content, not taken from the extension.
func Probe(path string) (*FileHandle, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	mediaType := "application/octet-stream"
	if info.Size() > 0 {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("detect media type: %w", err)
		}
		mediaType = mtype.String()
		if mtype.Is(PDFMediaType) {
			mediaType = PDFMediaType
		}
	}

	return &FileHandle{
		Name:      info.Name(),
		Path:      path,
		Size:      info.Size(),
		MediaType: mediaType,
	}, nil
}

// Picker lists selectable files inside the upload directory, the
// equivalent of a file dialog filtered to ".pdf".
type Picker struct {
	paths *security.PathValidator
}

// NewPicker creates a picker rooted at dir
func NewPicker(dir string) (*Picker, error) {
	paths, err := security.NewPathValidator(dir)
	if err != nil {
		return nil, fmt.Errorf("upload directory: %w", err)
	}
	return &Picker{paths: paths}, nil
}

// Dir returns the upload directory
func (p *Picker) Dir() string {
	return p.paths.Root()
}

// Open probes a file chosen by the user. Relative paths are resolved
// against the upload directory and paths outside it are rejected.
func (p *Picker) Open(path string) (*FileHandle, error) {
	abs, err := p.paths.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return Probe(abs)
}

// List returns the PDF files under the upload directory whose name
// contains query (case-insensitive), sorted by path.
func (p *Picker) List(query string) ([]*FileHandle, error) {
	root := p.paths.Root()
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", root)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var out []*FileHandle
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".pdf") {
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}
		if !p.paths.Within(path) {
			return nil
		}
		h, err := Probe(path)
		if err != nil {
			return nil //nolint:nilerr // unreadable files are not offered
		}
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
