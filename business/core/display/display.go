// Package display owns the state shown by the page. Every producer posts a
// tagged update into one ordered queue and a single renderer applies the
// updates and publishes the resulting view.
package display

import (
	"sort"

	"github.com/ardanlabs/storagecost/business/core/gasfee"
)

// Source identifies where an update comes from.
type Source int

// Set of update sources.
const (
	InputEdit Source = iota + 1
	EventEmit
	SelfWrite
	ChildWrite
	SelfRead
	ChildRead
)

var sourceNames = map[Source]string{
	InputEdit:  "input",
	EventEmit:  "event_emit",
	SelfWrite:  "self_write",
	ChildWrite: "child_write",
	SelfRead:   "self_read",
	ChildRead:  "child_read",
}

// String implements the fmt.Stringer interface.
func (s Source) String() string {
	if name, exists := sourceNames[s]; exists {
		return name
	}
	return "unknown"
}

// IsWrite reports whether the source is one of the three write operations.
func (s Source) IsWrite() bool {
	return s == EventEmit || s == SelfWrite || s == ChildWrite
}

// Kind identifies what happened at the source.
type Kind int

// Set of update kinds.
const (
	KindInput Kind = iota + 1
	KindPending
	KindConfirmed
	KindDecodeFailed
	KindFailed
	KindCancelled
	KindRead
	KindReadFailed
)

// Set of error kinds recorded against a source.
const (
	ErrKindSubmit    = "submit"
	ErrKindRevert    = "revert"
	ErrKindTimeout   = "timeout"
	ErrKindCancelled = "cancelled"
	ErrKindDecode    = "decode"
	ErrKindRead      = "read"
	ErrKindGas       = "gas"
)

// Error is the last failure recorded for a source.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Update is a single tagged change posted to the renderer.
type Update struct {
	Source Source
	Kind   Kind
	Data   string
	Gas    gasfee.Metrics
	Err    Error

	applied chan struct{}
}

// State is the complete set of values the page renders from.
type State struct {
	Seq      uint64
	Input    string
	Bytes    int
	Display  string
	Gas      gasfee.Metrics
	Pending  map[Source]bool
	Errors   map[Source]Error
	lastRead map[Source]string
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Pending:  make(map[Source]bool),
		Errors:   make(map[Source]Error),
		lastRead: make(map[Source]string),
	}
}

// ByteSize returns the number of bytes of the UTF-8 encoding of text.
func ByteSize(text string) int {
	return len(text)
}

// Apply changes the state for the specified update. Updates are applied in
// queue order and the last one to land wins the display string.
func Apply(s *State, u Update) {
	s.Seq++

	switch u.Kind {
	case KindInput:
		s.Input = u.Data
		s.Bytes = ByteSize(u.Data)

	case KindPending:
		s.Pending[u.Source] = true
		delete(s.Errors, u.Source)

	case KindConfirmed:
		delete(s.Pending, u.Source)
		s.Display = ""
		s.Gas = u.Gas
		s.Input = ""
		s.Bytes = 0

		// A confirmed write can still carry a gas metrics error.
		if u.Err.Kind != "" {
			s.Errors[u.Source] = u.Err
		}

		switch u.Source {
		case EventEmit:
			s.Display = u.Data

		// The stored value may equal the previous read, so the next read of
		// that source has to count as a new resolution.
		case SelfWrite:
			delete(s.lastRead, SelfRead)
		case ChildWrite:
			delete(s.lastRead, ChildRead)
		}

	case KindDecodeFailed:
		delete(s.Pending, u.Source)
		s.Display = ""
		s.Gas = u.Gas
		s.Input = ""
		s.Bytes = 0
		s.Errors[u.Source] = u.Err

	case KindFailed, KindCancelled:
		delete(s.Pending, u.Source)
		s.Errors[u.Source] = u.Err

	case KindRead:
		delete(s.Errors, u.Source)
		if prev, seen := s.lastRead[u.Source]; seen && prev == u.Data {
			return
		}
		s.lastRead[u.Source] = u.Data
		s.Display = u.Data

	case KindReadFailed:
		s.Errors[u.Source] = u.Err
	}
}

// Copy returns a deep copy of the state.
func (s State) Copy() State {
	cpy := s
	cpy.Pending = make(map[Source]bool, len(s.Pending))
	for src, v := range s.Pending {
		cpy.Pending[src] = v
	}
	cpy.Errors = make(map[Source]Error, len(s.Errors))
	for src, v := range s.Errors {
		cpy.Errors[src] = v
	}
	cpy.lastRead = make(map[Source]string, len(s.lastRead))
	for src, v := range s.lastRead {
		cpy.lastRead[src] = v
	}
	return cpy
}

// Loading reports whether any write is in flight.
func (s State) Loading() bool {
	return len(s.Pending) > 0
}

// CanPublish reports whether the publish controls are enabled.
func (s State) CanPublish() bool {
	return s.Input != "" && !s.Loading()
}

// =============================================================================

// View is the rendered form of the state.
type View struct {
	Seq        uint64           `json:"seq"`
	Input      string           `json:"input"`
	Bytes      int              `json:"bytes"`
	Loading    bool             `json:"loading"`
	CanPublish bool             `json:"can_publish"`
	Pending    []string         `json:"pending"`
	Gas        *gasfee.Metrics  `json:"gas,omitempty"`
	Display    string           `json:"display"`
	Errors     map[string]Error `json:"errors,omitempty"`
}

// Render produces the view of the state. While a write is pending only the
// loading indicator is shown. Gas metrics are shown only with a display
// string.
func Render(s State) View {
	v := View{
		Seq:        s.Seq,
		Input:      s.Input,
		Bytes:      s.Bytes,
		Loading:    s.Loading(),
		CanPublish: s.CanPublish(),
		Pending:    []string{},
	}

	for src := range s.Pending {
		v.Pending = append(v.Pending, src.String())
	}
	sort.Strings(v.Pending)

	if len(s.Errors) > 0 {
		v.Errors = make(map[string]Error, len(s.Errors))
		for src, e := range s.Errors {
			v.Errors[src.String()] = e
		}
	}

	if v.Loading {
		return v
	}

	v.Display = s.Display
	if s.Display != "" {
		gas := s.Gas
		v.Gas = &gas
	}

	return v
}
