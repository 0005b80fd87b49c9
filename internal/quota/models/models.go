package models

import (
	"time"
)

// Unlimited is the Remaining value reported to identities that bypass the
// daily limit.
const Unlimited = -1

const dayLayout = "2006-01-02"

// Day formats t as the calendar day quotas are counted on.
func Day(t time.Time) string {
	return t.Format(dayLayout)
}

// State is the per-identity usage record. Key is the namespaced identity
// ("account:42", "anonymous:<session>").
type State struct {
	Key           string
	Date          string
	QueriesToday  int
	HasCredential bool
	UpdatedAt     time.Time
}

// NewState creates an empty record for today.
func NewState(key, today string, now time.Time) *State {
	return &State{Key: key, Date: today, UpdatedAt: now}
}

// RollOver resets the counter when the stored day is not today. It reports
// whether a reset happened.
func (s *State) RollOver(today string) bool {
	if s.Date == today {
		return false
	}
	s.Date = today
	s.QueriesToday = 0
	return true
}

// Clone returns a copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	// Remaining is Unlimited for identities holding a personal credential.
	Remaining int
	// NeedsCredential is set on denials: the caller should register a
	// personal credential (or sign in) to continue.
	NeedsCredential bool
	Unbounded       bool
	Used            int
	Limit           int
}
