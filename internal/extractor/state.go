package extractor

import "github.com/a3tai/form990-extractor/internal/form990"

// Phase is the lifecycle position of a submission
type Phase int

const (
	Idle Phase = iota
	Submitting
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestState is the submission state shown to the user. Result is only
// set when Phase is Succeeded and Message only when Phase is Failed.
type RequestState struct {
	Phase    Phase
	Result   *form990.ExtractionResult
	Partial  bool
	Warnings []string
	Message  string
	// Seq identifies the submission the state belongs to
	Seq uint64
}

// RequestEventKind enumerates submission events
type RequestEventKind int

const (
	SubmitStarted RequestEventKind = iota
	SubmitResolved
	SubmitReset
)

// RequestEvent drives Reduce. Outcome and Seq are read for SubmitResolved.
type RequestEvent struct {
	Kind    RequestEventKind
	Outcome Outcome
	Seq     uint64
}

// Reduce applies ev to s. A resolution is ignored unless it belongs to the
// submission currently in flight, so a late response can never overwrite a
// reset or a newer request.
func Reduce(s RequestState, ev RequestEvent) RequestState {
	switch ev.Kind {
	case SubmitStarted:
		return RequestState{Phase: Submitting, Seq: s.Seq + 1}
	case SubmitResolved:
		if s.Phase != Submitting || ev.Seq != s.Seq {
			return s
		}
		if ev.Outcome.Succeeded() {
			return RequestState{
				Phase:    Succeeded,
				Result:   ev.Outcome.Result,
				Partial:  ev.Outcome.Kind == PartialSuccess,
				Warnings: ev.Outcome.Warnings,
				Seq:      s.Seq,
			}
		}
		msg := ev.Outcome.Message
		if msg == "" {
			msg = FallbackExtractionError
		}
		return RequestState{Phase: Failed, Message: msg, Seq: s.Seq}
	case SubmitReset:
		return RequestState{Phase: Idle, Seq: s.Seq}
	}
	return s
}
