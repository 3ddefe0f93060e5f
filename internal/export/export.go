// Package export serializes extraction results into downloadable files.
//
// The JSON encoder keeps the service payload untouched. The CSV and XLSX
// encoders walk the canonical field order and clean every value with
// form990.Normalize, so both tabular formats always agree.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/form990-extractor/internal/form990"
)

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	defaultBaseName = "extraction"
	xlsxSheet       = "Fields"
)

// ErrUnknownFormat is returned for an unsupported export format
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported encodings
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatXLSX}
}

// ParseFormat resolves a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// BaseName strips any directory part (either separator) and a trailing
// ".pdf" from the file name reported for the result.
func BaseName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, ".pdf")
	switch base {
	case "", ".", "..", "/":
		return defaultBaseName
	}
	return base
}

// FileName returns the download name for a result in the given format,
// e.g. "form990_extracted.csv"
func FileName(filename string, format Format) string {
	return BaseName(filename) + "_extracted." + string(format)
}

// Encode dispatches to the encoder for format
func Encode(result *form990.ExtractionResult, format Format) ([]byte, error) {
	if result == nil {
		return nil, errors.New("result cannot be nil")
	}
	switch format {
	case FormatJSON:
		return JSON(result)
	case FormatCSV:
		return CSV(result), nil
	case FormatXLSX:
		return XLSX(result)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON renders the full result as received from the service, indented
// with two spaces. Values are not normalized.
func JSON(result *form990.ExtractionResult) ([]byte, error) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

// CSV renders one quoted (label, value) row per schema field under a
// "Field,Value" header. Rows are separated by "\n".
func CSV(result *form990.ExtractionResult) []byte {
	var buf bytes.Buffer
	buf.WriteString("Field,Value")
	for _, row := range Rows(result) {
		buf.WriteByte('\n')
		buf.WriteString(quote(row.Label))
		buf.WriteByte(',')
		buf.WriteString(quote(row.Value))
	}
	return buf.Bytes()
}

func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// TabularRow is one line of a tabular export
type TabularRow struct {
	Section form990.Section
	Key     string
	Label   string
	Value   string
}

// Rows walks the canonical field order and looks each key up in its own
// section. Fields the service did not deliver normalize to "0".
func Rows(result *form990.ExtractionResult) []TabularRow {
	fields := form990.AllFields()
	rows := make([]TabularRow, 0, len(fields))
	for _, f := range fields {
		raw, _ := result.Lookup(f.Section, f.Key)
		rows = append(rows, TabularRow{
			Section: f.Section,
			Key:     f.Key,
			Label:   f.Label,
			Value:   form990.Normalize(raw),
		})
	}
	return rows
}

// XLSX renders the same rows as CSV into a single-sheet workbook with an
// extra Section column.
func XLSX(result *form990.ExtractionResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(xlsxSheet, cell, v)
	}

	for i, h := range []string{"Section", "Field", "Value"} {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, r := range Rows(result) {
		line := i + 2
		for col, v := range []string{r.Section.Title(), r.Label, r.Value} {
			if err := write(col+1, line, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", line, err)
			}
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 22)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 40)
	_ = f.SetColWidth(xlsxSheet, "C", "C", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
