package form990

import "strings"

// Row is one rendered field of the active section
type Row struct {
	Key   string
	Label string
	Value string
}

// View selects one section of a result for display. It is a value type:
// switching sections returns a new View and never touches the result.
type View struct {
	result *ExtractionResult
	active Section
}

// NewView returns a view positioned on the first section
func NewView(result *ExtractionResult) View {
	return View{result: result, active: Page1Summary}
}

// Result returns the underlying extraction result
func (v View) Result() *ExtractionResult {
	return v.result
}

// Active returns the selected section
func (v View) Active() Section {
	return v.active
}

// SetActive returns a view of the same result positioned on s
func (v View) SetActive(s Section) View {
	v.active = s
	return v
}

// FieldsForActiveSection resolves the schema slice and the raw values of
// the active section. A section missing from the result yields an empty map.
func (v View) FieldsForActiveSection() ([]FieldDefinition, map[string]RawValue) {
	return Fields(v.active), v.result.Values(v.active)
}

// Rows renders the active section, normalizing each value on the way out
func (v View) Rows() []Row {
	fields, values := v.FieldsForActiveSection()
	rows := make([]Row, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, Row{Key: f.Key, Label: f.Label, Value: Normalize(values[f.Key])})
	}
	return rows
}

// WarningBanner lists the fields the service could not extract
func (v View) WarningBanner() string {
	if !v.result.HasWarnings() {
		return ""
	}
	return "Some fields could not be extracted: " + strings.Join(v.result.Warnings, ", ")
}
