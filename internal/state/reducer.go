package state

import (
	"slices"

	"github.com/npezzotti/go-classroom/internal/types"
)

const (
	fallbackAuthor = "Utente"
	fallbackRole   = types.RoleParent
)

// Reduce returns the state that results from applying a to s. The input is
// never modified.
func Reduce(s types.State, a Action) types.State {
	switch a := a.(type) {
	case SetSchoolType:
		s.SchoolType = a.Value
	case SetUserRole:
		s.UserRole = a.Value
	case SetUserName:
		s.UserName = a.Value
	case SetClassName:
		s.ClassName = a.Value
	case AddMessage:
		author := s.UserName
		if author == "" {
			author = fallbackAuthor
		}
		role := s.UserRole
		if role == "" {
			role = fallbackRole
		}

		msgs := make([]types.Message, len(s.Messages), len(s.Messages)+1)
		copy(msgs, s.Messages)
		s.Messages = append(msgs, types.Message{
			Id:        a.Id,
			Text:      a.Text,
			Author:    author,
			Role:      role,
			Timestamp: a.At,
			Channel:   a.Channel,
		})
	case UpdateSettings:
		s.Settings = a.Patch.Apply(s.Settings)
	case LoadState:
		p := a.Patch
		if p.SchoolType != nil {
			s.SchoolType = *p.SchoolType
		}
		if p.UserRole != nil {
			s.UserRole = *p.UserRole
		}
		if p.UserName != nil {
			s.UserName = *p.UserName
		}
		if p.ClassName != nil {
			s.ClassName = *p.ClassName
		}
		if p.Messages != nil {
			s.Messages = slices.Clone(*p.Messages)
		}
		if p.Settings != nil {
			s.Settings = p.Settings.Apply(s.Settings)
		}
	}

	return s
}
