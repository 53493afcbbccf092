package usersync

import (
	"fmt"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// State discriminates Status.
type State int

const (
	StateIdle State = iota
	StateSyncing
	StateSynced
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateFailed:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is an immutable snapshot of the sync state. Build it with Idle, Syncing,
// Synced or Failed and switch on State.
//
// Profile is the last successfully synced profile. It is always set when Synced,
// may be set while Syncing or Failed, and is never set when Idle.
type Status struct {
	State   State
	Profile *models.UserProfile

	// Failed only.
	Message   string
	IsTimeout bool
	Err       error
}

func Idle() Status {
	return Status{State: StateIdle}
}

func Syncing(last *models.UserProfile) Status {
	return Status{State: StateSyncing, Profile: last}
}

func Synced(profile *models.UserProfile) Status {
	return Status{State: StateSynced, Profile: profile}
}

func Failed(last *models.UserProfile, message string, isTimeout bool, err error) Status {
	return Status{State: StateFailed, Profile: last, Message: message, IsTimeout: isTimeout, Err: err}
}

func (s Status) IsIdle() bool    { return s.State == StateIdle }
func (s Status) IsSyncing() bool { return s.State == StateSyncing }
func (s Status) IsSynced() bool  { return s.State == StateSynced }
func (s Status) IsFailed() bool  { return s.State == StateFailed }

// CanRetry reports whether a view should offer a retry action.
func (s Status) CanRetry() bool {
	return s.State == StateFailed && s.IsTimeout
}

func (s Status) String() string {
	if s.State == StateFailed {
		return fmt.Sprintf("%s: %s", s.State, s.Message)
	}
	return s.State.String()
}
