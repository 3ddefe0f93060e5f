// Package session owns the state of one user working through the
// select -> extract -> review -> export flow. Front ends (the MCP tools and
// the CLI) hold a *Session and drive it with events; they never share
// mutable state with each other.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/extractor"
	"github.com/a3tai/form990-extractor/internal/form990"
	"github.com/a3tai/form990-extractor/internal/pdf"
	"github.com/a3tai/form990-extractor/internal/upload"
)

var (
	// ErrBusy is returned for actions that are disabled while a submission
	// is in flight
	ErrBusy = errors.New("an extraction is already in progress")
	// ErrNoResult is returned when there is nothing to view or export
	ErrNoResult = errors.New("no extraction result available")
)

// Session is the single owned state container. The mutex guards memory
// only; it is not held across the network call.
type Session struct {
	controller *extractor.Controller
	validator  *pdf.Validator
	inspector  *pdf.Inspector
	writer     *export.Writer
	logger     *zap.Logger

	mu         sync.Mutex
	capture    upload.State
	active     form990.Section
	notice     string
	submitting bool
}

// Config wires a session to its collaborators. Validator, Inspector and
// Writer are optional.
type Config struct {
	Extractor extractor.Extractor
	Validator *pdf.Validator
	Inspector *pdf.Inspector
	Writer    *export.Writer
	Logger    *zap.Logger
}

// New creates a session
func New(cfg Config) (*Session, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		controller: extractor.NewController(cfg.Extractor, logger),
		validator:  cfg.Validator,
		inspector:  cfg.Inspector,
		writer:     cfg.Writer,
		logger:     logger,
		active:     form990.Page1Summary,
	}, nil
}

// Snapshot is a read-only copy of the session state
type Snapshot struct {
	Upload  upload.State
	Request extractor.RequestState
	Active  form990.Section
	// Notice is a non-blocking message about the last capture attempt,
	// e.g. a PDF that failed local validation
	Notice string
}

// Busy reports whether a submission is in flight
func (s Snapshot) Busy() bool {
	return s.Request.Phase == extractor.Submitting
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Upload:  s.capture,
		Request: s.controller.State(),
		Active:  s.active,
		Notice:  s.notice,
	}
}

// DragEnter marks the capture area as hovered
func (s *Session) DragEnter() Snapshot {
	return s.apply(upload.Event{Kind: upload.DragEnter})
}

// DragLeave clears the hover flag
func (s *Session) DragLeave() Snapshot {
	return s.apply(upload.Event{Kind: upload.DragLeave})
}

// Drop offers a dropped file. Non-PDF candidates are ignored.
func (s *Session) Drop(candidate *upload.FileHandle) Snapshot {
	return s.offer(upload.Event{Kind: upload.Drop, Candidate: candidate})
}

// SelectFile offers a file chosen from the picker. Non-PDF candidates are
// ignored.
func (s *Session) SelectFile(candidate *upload.FileHandle) Snapshot {
	return s.offer(upload.Event{Kind: upload.Select, Candidate: candidate})
}

// RemoveFile clears the selected file, the result and the error. It is
// refused while a submission is in flight.
func (s *Session) RemoveFile() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return s.snapshotLocked(), ErrBusy
	}
	s.capture = upload.Reduce(s.capture, upload.Event{Kind: upload.Remove})
	s.clearLocked()
	return s.snapshotLocked(), nil
}

// Reset returns the whole session to its initial state
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = upload.State{}
	s.clearLocked()
	return s.snapshotLocked()
}

func (s *Session) clearLocked() {
	s.controller.Reset()
	s.active = form990.Page1Summary
	s.notice = ""
}

func (s *Session) apply(ev upload.Event) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = upload.Reduce(s.capture, ev)
	return s.snapshotLocked()
}

// offer runs a Drop or Select event. An accepted file starts a new
// cycle: the previous result and error are cleared.
func (s *Session) offer(ev upload.Event) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Candidate != nil {
		c := *ev.Candidate
		ev.Candidate = &c
	}
	if !upload.Accepted(s.capture, ev) {
		s.capture = upload.Reduce(s.capture, ev)
		if ev.Candidate != nil {
			s.logger.Debug("upload.ignored",
				zap.String("file", ev.Candidate.Name),
				zap.String("media_type", ev.Candidate.MediaType),
			)
		}
		return s.snapshotLocked()
	}

	s.capture = upload.Reduce(s.capture, ev)
	s.clearLocked()
	s.inspectLocked(s.capture.File)
	s.logger.Info("upload.selected",
		zap.String("event", ev.Kind.String()),
		zap.String("file", s.capture.File.Name),
		zap.Int64("size", s.capture.File.Size),
	)
	return s.snapshotLocked()
}

// inspectLocked fills in page count and validation notice; failures are
// informational only.
func (s *Session) inspectLocked(h *upload.FileHandle) {
	if s.inspector != nil {
		pages, err := s.inspector.PageCount(h.Path)
		if err != nil {
			s.logger.Debug("upload.page_count_failed", zap.String("file", h.Name), zap.Error(err))
		} else {
			h.Pages = pages
		}
	}
	if s.validator != nil {
		if res := s.validator.Validate(h); !res.Valid {
			s.notice = res.Message
		}
	}
}

// Extract submits the selected file. Without a file it is a no-op; while
// another submission is in flight it returns ErrBusy. Service failures are
// reported in the returned state, never as an error.
func (s *Session) Extract(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.submitting {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrBusy
	}
	file := s.capture.File
	if file == nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.submitting = true
	s.active = form990.Page1Summary
	s.mu.Unlock()

	s.controller.Submit(ctx, file)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
	return s.Snapshot(), nil
}

// SetSection switches the displayed section. It never re-fetches and never
// mutates the result.
func (s *Session) SetSection(section form990.Section) (Snapshot, error) {
	if !section.Valid() {
		return s.Snapshot(), fmt.Errorf("%w: %q", form990.ErrUnknownSection, section)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = section
	return s.snapshotLocked(), nil
}

// View returns the result view positioned on the active section
func (s *Session) View() (form990.View, error) {
	snap := s.Snapshot()
	if snap.Request.Phase != extractor.Succeeded || snap.Request.Result == nil {
		return form990.View{}, ErrNoResult
	}
	return form990.NewView(snap.Request.Result).SetActive(snap.Active), nil
}

// Export writes the full result (all sections, regardless of the active
// one) in the given format and returns the written path. An empty dir
// means the writer's root.
func (s *Session) Export(format export.Format, dir string) (string, error) {
	if s.writer == nil {
		return "", fmt.Errorf("export is not configured")
	}
	snap := s.Snapshot()
	if snap.Request.Phase != extractor.Succeeded || snap.Request.Result == nil {
		return "", ErrNoResult
	}
	return s.writer.Write(snap.Request.Result, format, dir)
}
