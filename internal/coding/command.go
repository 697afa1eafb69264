package coding

import "github.com/meridian-cg/coding-portal/internal/model"

// Commands decouple the coding flow from any particular input binding. A
// client maps its own shortcuts or buttons onto these and the session
// interprets them.

type CommandKind int

const (
	CommandSave CommandKind = iota + 1
	CommandCancel
	CommandSelectType
	CommandSelectAll
)

// Command is one dispatched coding action. Type is only read for
// CommandSelectType.
type Command struct {
	Kind CommandKind
	Type model.CodingType
}

func SaveCommand() Command                         { return Command{Kind: CommandSave} }
func CancelCommand() Command                       { return Command{Kind: CommandCancel} }
func SelectTypeCommand(t model.CodingType) Command { return Command{Kind: CommandSelectType, Type: t} }
func SelectAllCommand() Command                    { return Command{Kind: CommandSelectAll} }

// SaveFunc persists a completed draft. The session never talks to the
// backend directly.
type SaveFunc func(assignment model.CodingAssignment, notes string) error

// Session holds one in-progress coding draft and its recently-used state.
type Session struct {
	draft     model.CodingAssignment
	notes     string
	selectAll bool

	recent *RecentTracker
	save   SaveFunc
}

func NewSession(save SaveFunc) *Session {
	return &Session{recent: NewRecentTracker(), save: save}
}

// Draft exposes the working assignment for field edits.
func (s *Session) Draft() *model.CodingAssignment {
	return &s.draft
}

// SetNotes replaces the draft notes.
func (s *Session) SetNotes(notes string) {
	s.notes = notes
}

// Notes returns the draft notes.
func (s *Session) Notes() string {
	return s.notes
}

// SelectAllRequested reports whether the last dispatch asked to select every
// transaction sharing the merchant key. Reading it clears the flag.
func (s *Session) SelectAllRequested() bool {
	requested := s.selectAll
	s.selectAll = false
	return requested
}

// Recent returns the session's recently-used tracker.
func (s *Session) Recent() *RecentTracker {
	return s.recent
}

// Apply interprets one command against the current draft.
func (s *Session) Apply(cmd Command) error {
	switch cmd.Kind {
	case CommandSave:
		if !s.draft.IsComplete() {
			return ErrIncompleteCoding
		}
		if err := s.save(s.draft, s.notes); err != nil {
			return err
		}
		s.recent.Record(s.draft)
		s.reset()
		return nil
	case CommandCancel:
		s.reset()
		return nil
	case CommandSelectType:
		s.draft.SetType(cmd.Type)
		return nil
	case CommandSelectAll:
		s.selectAll = true
		return nil
	}
	return nil
}

func (s *Session) reset() {
	s.draft = model.CodingAssignment{}
	s.notes = ""
	s.selectAll = false
}
