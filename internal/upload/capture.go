// Package upload models the single-file capture area: drag state, the
// candidate file and the media-type gate in front of it.
package upload

import (
	"math"
	"strconv"
)

// PDFMediaType is the only media type the capture area accepts
const PDFMediaType = "application/pdf"

// FileHandle describes a captured file
type FileHandle struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	MediaType string `json:"media_type"`
	Pages     int    `json:"pages,omitempty"`
}

// IsPDF reports whether the handle carries exactly the PDF media type
func (h *FileHandle) IsPDF() bool {
	return h != nil && h.MediaType == PDFMediaType
}

// State is the capture area state. File is nil when nothing is selected.
type State struct {
	File       *FileHandle `json:"file,omitempty"`
	DragActive bool        `json:"drag_active"`
}

// HasFile reports whether a file is selected
func (s State) HasFile() bool {
	return s.File != nil
}

// EventKind enumerates capture events
type EventKind int

const (
	DragEnter EventKind = iota
	DragLeave
	Drop
	Select
	Remove
)

func (k EventKind) String() string {
	switch k {
	case DragEnter:
		return "drag_enter"
	case DragLeave:
		return "drag_leave"
	case Drop:
		return "drop"
	case Select:
		return "select"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a user interaction with the capture area. Candidate is only
// read for Drop and Select.
type Event struct {
	Kind      EventKind
	Candidate *FileHandle
}

// Reduce applies ev to s and returns the next state. Candidates that are
// not PDFs are dropped without changing the selected file; a valid
// candidate always replaces the current one.
func Reduce(s State, ev Event) State {
	switch ev.Kind {
	case DragEnter:
		s.DragActive = true
	case DragLeave:
		s.DragActive = false
	case Drop:
		s.DragActive = false
		if ev.Candidate.IsPDF() {
			s.File = ev.Candidate
		}
	case Select:
		if ev.Candidate.IsPDF() {
			s.File = ev.Candidate
		}
	case Remove:
		s.File = nil
	}
	return s
}

// Accepted reports whether applying ev to s would change the selected file
func Accepted(s State, ev Event) bool {
	next := Reduce(s, ev)
	return next.File != s.File
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with up to two decimals, e.g. "1.5 MB"
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := 0
	v := float64(n)
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}
