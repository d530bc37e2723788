// Package session holds per-user conversation state for the order wizard:
// the navigation stack, collected answers, and a TTL-bound in-memory store.
package session

import (
	"time"
)

// Step identifies one screen of the order wizard
type Step string

const (
	StepMenu            Step = "menu"
	StepSelectBreed     Step = "select_breed"
	StepSelectIncubator Step = "select_incubator"
	StepSelectDate      Step = "select_date"
	StepEnterQuantity   Step = "enter_quantity"
	StepEnterPhone      Step = "enter_phone"
	StepConfirm         Step = "confirm"
)

// wizardOrder is the forward transition table. A step may only be pushed on
// top of its listed predecessor.
var wizardOrder = map[Step]Step{
	StepSelectBreed:     StepMenu,
	StepSelectIncubator: StepSelectBreed,
	StepSelectDate:      StepSelectIncubator,
	StepEnterQuantity:   StepSelectDate,
	StepEnterPhone:      StepEnterQuantity,
	StepConfirm:         StepEnterPhone,
}

// CanFollow reports whether next is a legal forward move from current
func CanFollow(current, next Step) bool {
	return wizardOrder[next] == current
}

// OrderDraft is the answer set collected while walking the wizard
type OrderDraft struct {
	Breed     string
	Incubator string
	Date      string
	Quantity  int
	Phone     string
	StockID   uint
}

// Session is one user's conversation state. Not safe for concurrent use on
// its own; the store serializes access per call.
type Session struct {
	UserID    int64
	Stack     []Step
	Draft     OrderDraft
	UpdatedAt time.Time
}

func newSession(userID int64) *Session {
	return &Session{
		UserID: userID,
		Stack:  []Step{StepMenu},
	}
}

// Current returns the step on top of the stack
func (s *Session) Current() Step {
	if len(s.Stack) == 0 {
		return StepMenu
	}
	return s.Stack[len(s.Stack)-1]
}

// Push advances to the next step if the transition table allows it
func (s *Session) Push(next Step) bool {
	if !CanFollow(s.Current(), next) {
		return false
	}
	s.Stack = append(s.Stack, next)
	return true
}

// Back pops the current step and returns the step now on top. Popping the
// last frame resets the session to the menu; the phone survives so a repeat
// customer never retypes it.
func (s *Session) Back() Step {
	if len(s.Stack) <= 1 {
		s.reset()
		return StepMenu
	}
	leaving := s.Current()
	s.Stack = s.Stack[:len(s.Stack)-1]
	s.invalidateFrom(leaving)
	return s.Current()
}

// Reset clears the stack and draft, keeping only the phone
func (s *Session) Reset() {
	s.reset()
}

func (s *Session) reset() {
	phone := s.Draft.Phone
	s.Stack = []Step{StepMenu}
	s.Draft = OrderDraft{Phone: phone}
}

// invalidateFrom drops every answer collected at or after the given step.
// Stepping back past breed selection must not leave a stale incubator or
// date pointing at a batch that no longer matches.
func (s *Session) invalidateFrom(step Step) {
	switch step {
	case StepSelectBreed:
		s.Draft.Breed = ""
		fallthrough
	case StepSelectIncubator:
		s.Draft.Incubator = ""
		fallthrough
	case StepSelectDate:
		s.Draft.Date = ""
		s.Draft.StockID = 0
		fallthrough
	case StepEnterQuantity:
		s.Draft.Quantity = 0
	case StepEnterPhone, StepConfirm:
		// phone and the confirm screen hold nothing downstream
	}
}
