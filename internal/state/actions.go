package state

import (
	"time"

	"github.com/npezzotti/go-classroom/internal/types"
)

// Action is one of the closed set of state transitions below.
type Action interface {
	action()
}

type SetSchoolType struct {
	Value types.SchoolType
}

type SetUserRole struct {
	Value types.UserRole
}

type SetUserName struct {
	Value string
}

type SetClassName struct {
	Value string
}

// AddMessage carries the id and time stamped at dispatch so that Reduce
// stays pure.
type AddMessage struct {
	Channel types.Channel
	Text    string
	Id      string
	At      time.Time
}

type UpdateSettings struct {
	Patch types.SettingsPatch
}

// LoadState merges a persisted blob into the state at startup.
type LoadState struct {
	Patch types.StatePatch
}

func (SetSchoolType) action()  {}
func (SetUserRole) action()    {}
func (SetUserName) action()    {}
func (SetClassName) action()   {}
func (AddMessage) action()     {}
func (UpdateSettings) action() {}
func (LoadState) action()      {}
