package pdf

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/form990-extractor/internal/upload"
)

// Validator checks that a captured file is a readable PDF the service
// will accept
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidationResult reports whether a file passed validation
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Message string `json:"message,omitempty"`
}

// Validate checks size limits and that the document opens. Validation
// failures are reported in the result, not as an error.
func (v *Validator) Validate(h *upload.FileHandle) *ValidationResult {
	if h == nil {
		return &ValidationResult{Message: "no file selected"}
	}
	result := &ValidationResult{Path: h.Path}
	if err := v.validate(h); err != nil {
		result.Message = err.Error()
		return result
	}
	result.Valid = true
	return result
}

func (v *Validator) validate(h *upload.FileHandle) error {
	if !h.IsPDF() {
		return fmt.Errorf("file is not a PDF: %s (%s)", h.Name, h.MediaType)
	}

	info, err := os.Stat(h.Path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", h.Path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", h.Path)
	}
	if v.maxFileSize > 0 && info.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	}

	f, _, err := pdf.Open(h.Path)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return nil
}
