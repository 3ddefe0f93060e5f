package extractor

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/a3tai/form990-extractor/internal/form990"
)

const (
	// FallbackServiceError is shown when a non-2xx response carries no detail
	FallbackServiceError = "Failed to extract data from PDF"
	// FallbackExtractionError is shown when the service neither succeeded
	// nor returned usable data
	FallbackExtractionError = "Extraction failed"
)

// OutcomeKind tags a decoded service response
type OutcomeKind int

const (
	FullSuccess OutcomeKind = iota
	PartialSuccess
	Failure
)

func (k OutcomeKind) String() string {
	switch k {
	case FullSuccess:
		return "full_success"
	case PartialSuccess:
		return "partial_success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is a service response decoded once at the boundary. Result is
// set for the two success kinds, Message for Failure.
type Outcome struct {
	Kind       OutcomeKind
	Result     *form990.ExtractionResult
	Warnings   []string
	Message    string
	StatusCode int
}

// Succeeded reports whether the outcome carries a result
func (o Outcome) Succeeded() bool {
	return o.Kind == FullSuccess || o.Kind == PartialSuccess
}

func failure(status int, msg string) Outcome {
	return Outcome{Kind: Failure, Message: msg, StatusCode: status}
}

// envelope is the response body of /api/extract and /api/extract/v2
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

// dataSchema constrains the parts of envelope.data the client reads:
// sections must be objects and errors a list. Anything inside a section
// and any extra key is left to the decoder, which keeps scalars only.
var dataSchema = jsonschema.MustCompileString("extraction_result.json", `{
	"type": "object",
	"properties": {
		"filename": {"type": ["string", "null"]},
		"page1": {"$ref": "#/$defs/section"},
		"part_viii": {"$ref": "#/$defs/section"},
		"part_ix": {"$ref": "#/$defs/section"},
		"errors": {"type": ["array", "null"]}
	},
	"$defs": {
		"section": {"type": ["object", "null"]}
	}
}`)

// Decode classifies a service response:
//   - non-2xx: Failure with detail, message or a fallback;
//   - success true: FullSuccess;
//   - success false with a non-empty data object: PartialSuccess;
//   - anything else: Failure with message, detail or a fallback.
func Decode(status int, body []byte) Outcome {
	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if status < 200 || status > 299 {
		if decodeErr != nil {
			return failure(status, FallbackServiceError)
		}
		return failure(status, firstText(FallbackServiceError, env.Detail, env.Message))
	}
	if decodeErr != nil {
		return failure(status, FallbackExtractionError)
	}

	keys, isObject := objectKeys(env.Data)
	if !env.Success && keys == 0 {
		return failure(status, firstText(FallbackExtractionError, env.Message, env.Detail))
	}

	result := form990.NewExtractionResult("")
	if isObject {
		if err := validateData(env.Data); err != nil {
			return failure(status, FallbackExtractionError+": malformed response data")
		}
		parsed, err := form990.ParseExtractionResult(env.Data)
		if err != nil {
			return failure(status, FallbackExtractionError+": malformed response data")
		}
		result = parsed
	}

	kind := FullSuccess
	if !env.Success {
		kind = PartialSuccess
	}
	return Outcome{Kind: kind, Result: result, Warnings: result.Warnings, StatusCode: status}
}

func validateData(data json.RawMessage) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return dataSchema.Validate(v)
}

// objectKeys returns the number of keys when raw is a JSON object
func objectKeys(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return 0, false
	}
	return len(m), true
}

// firstText returns the first non-empty candidate as user-visible text.
// Strings are used verbatim; other JSON values (e.g. a list of validation
// errors) are rendered compactly.
func firstText(fallback string, candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if strings.TrimSpace(s) != "" {
				return s
			}
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil && buf.Len() > 0 {
			return buf.String()
		}
	}
	return fallback
}
