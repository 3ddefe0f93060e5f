package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	Form990ListFilesDescription = `List the Form 990 PDFs available in the upload directory.

**When to use:** Before selecting a file, to find the exact path of the return you want extracted.

**Examples:**
• Browse uploads: "Which Form 990 PDFs can I extract?"
• Narrow down: "List files matching 'redcross'"

**Common workflows:**
1. List files → Select one → Extract → Review sections → Export

**Best practices:** Pass a query to filter by file name; matching is case-insensitive.`

	Form990SelectFileDescription = `Select a PDF as the current upload.

**When to use:** To start a new extraction cycle. Selecting a file clears any previous result or error.

**Examples:**
• "Select 2023/redcross-990.pdf"

**Common workflows:**
1. Select file → form990_extract
2. Select a different file → the old result is discarded

**Best practices:** Only PDFs are accepted; anything else is ignored and the current selection is kept. Validation problems are reported as notices but do not block extraction.`

	Form990RemoveFileDescription = `Remove the selected PDF and clear the result and error.

**When to use:** To start over without picking a new file. Refused while an extraction is in progress.`

	Form990ExtractDescription = `Submit the selected PDF to the extraction service and show the Page 1 summary.

**When to use:** After selecting a file. Only one extraction can run at a time.

**Examples:**
• "Extract the selected Form 990"

**Common workflows:**
1. Extract → review the Page 1 Summary → form990_view_section for Part VIII or Part IX → form990_export

**Best practices:** A partial result still shows every field; values the service could not read appear as 0 and are listed in a warning.`

	Form990ViewSectionDescription = `Show the extracted fields of one section.

**When to use:** After a successful extraction, to review Part VIII (revenue) or Part IX (expenses) details.

**Examples:**
• "Show Part IX expenses"
• "Go back to the page 1 summary"

**Best practices:** Switching sections never calls the service again. Accepted values: page1, part_viii, part_ix.`

	Form990ExportDescription = `Write the full extraction result to a file.

**When to use:** After a successful extraction, to hand the data to another system.

**Examples:**
• JSON for pipelines: "Export as json"
• Spreadsheet review: "Export as csv" or "Export as xlsx"

**Best practices:** Exports always include all three sections regardless of which one is displayed. Files are named <pdf name>_extracted.<format>.`

	Form990ResetDescription = `Clear the selection, result and error and return to the initial state.`

	Form990StatusDescription = `Show the current state: selected file, extraction phase, active section and any error.

**When to use:** To check whether an extraction is still running or what went wrong.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form990_list_files":   Form990ListFilesDescription,
	"form990_select_file":  Form990SelectFileDescription,
	"form990_remove_file":  Form990RemoveFileDescription,
	"form990_extract":      Form990ExtractDescription,
	"form990_view_section": Form990ViewSectionDescription,
	"form990_export":       Form990ExportDescription,
	"form990_reset":        Form990ResetDescription,
	"form990_status":       Form990StatusDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted tool names
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
