package form990

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExtractionResult is the structured payload returned by the extraction
// service for one PDF. Values are kept as delivered; nothing is re-derived.
type ExtractionResult struct {
	Filename string
	Sections map[Section]map[string]RawValue
	Warnings []string

	// raw is the payload as received, re-emitted by MarshalJSON
	raw json.RawMessage
}

// wireResult mirrors the service JSON shape
type wireResult struct {
	Filename string              `json:"filename"`
	Page1    map[string]RawValue `json:"page1"`
	PartVIII map[string]RawValue `json:"part_viii"`
	PartIX   map[string]RawValue `json:"part_ix"`
	Errors   []string            `json:"errors,omitempty"`
}

// wirePayload is the decode side of wireResult. Section entries and
// errors are kept raw so that values of an unexpected shape can be skipped
// instead of failing the whole payload.
type wirePayload struct {
	Filename string                     `json:"filename"`
	Page1    map[string]json.RawMessage `json:"page1"`
	PartVIII map[string]json.RawMessage `json:"part_viii"`
	PartIX   map[string]json.RawMessage `json:"part_ix"`
	Errors   []json.RawMessage          `json:"errors"`
}

// NewExtractionResult builds a result with all three sections present
func NewExtractionResult(filename string) *ExtractionResult {
	r := &ExtractionResult{Filename: filename}
	r.ensureSections()
	return r
}

// ParseExtractionResult decodes a service payload. Numbers keep their JSON
// text, unknown keys are ignored and missing sections become empty.
func ParseExtractionResult(data []byte) (*ExtractionResult, error) {
	r := &ExtractionResult{}
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler. Section entries whose value
// is an object or an array are dropped; errors that are not strings are
// kept as compact JSON text.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode extraction result: %w", err)
	}

	r.Filename = w.Filename
	r.Warnings = nil
	for _, e := range w.Errors {
		if msg := warningText(e); msg != "" {
			r.Warnings = append(r.Warnings, msg)
		}
	}
	r.Sections = map[Section]map[string]RawValue{
		Page1Summary:  scalars(w.Page1),
		RevenueDetail: scalars(w.PartVIII),
		ExpenseDetail: scalars(w.PartIX),
	}
	r.ensureSections()

	r.raw = nil
	if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("{")) {
		r.raw = append(json.RawMessage(nil), trimmed...)
	}
	return nil
}

func scalars(section map[string]json.RawMessage) map[string]RawValue {
	out := make(map[string]RawValue, len(section))
	for key, raw := range section {
		var v RawValue
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		out[key] = v
	}
	return out
}

func warningText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

// MarshalJSON re-emits the payload exactly as the service sent it. A
// result built in memory is rendered in the service shape.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(wireResult{
		Filename: r.Filename,
		Page1:    r.Values(Page1Summary),
		PartVIII: r.Values(RevenueDetail),
		PartIX:   r.Values(ExpenseDetail),
		Errors:   r.Warnings,
	})
}

func (r *ExtractionResult) ensureSections() {
	if r.Sections == nil {
		r.Sections = make(map[Section]map[string]RawValue, len(sectionOrder))
	}
	for _, s := range sectionOrder {
		if r.Sections[s] == nil {
			r.Sections[s] = map[string]RawValue{}
		}
	}
}

// Values returns the raw value mapping of a section, never nil
func (r *ExtractionResult) Values(s Section) map[string]RawValue {
	if r == nil || r.Sections[s] == nil {
		return map[string]RawValue{}
	}
	return r.Sections[s]
}

// Lookup returns the raw value of key in section s. The second result is
// false when the service did not deliver the field.
func (r *ExtractionResult) Lookup(s Section, key string) (RawValue, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Sections[s][key]
	return v, ok
}

// Value returns the normalized value of key in section s
func (r *ExtractionResult) Value(s Section, key string) string {
	v, _ := r.Lookup(s, key)
	return Normalize(v)
}

// HasWarnings reports whether the service flagged fields it could not extract
func (r *ExtractionResult) HasWarnings() bool {
	return r != nil && len(r.Warnings) > 0
}
