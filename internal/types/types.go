package types

import (
	"fmt"
	"time"
)

type SchoolType string

const (
	SchoolNursery   SchoolType = "asilo"
	SchoolPrimary   SchoolType = "elementari"
	SchoolMiddle    SchoolType = "medie"
	SchoolSecondary SchoolType = "superiori"
)

var SchoolTypes = []SchoolType{SchoolNursery, SchoolPrimary, SchoolMiddle, SchoolSecondary}

func ParseSchoolType(s string) (SchoolType, error) {
	for _, st := range SchoolTypes {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown school type %q", s)
}

type UserRole string

const (
	RoleParent         UserRole = "genitore"
	RoleTeacher        UserRole = "insegnante"
	RoleRepresentative UserRole = "rappresentante"
)

var UserRoles = []UserRole{RoleParent, RoleTeacher, RoleRepresentative}

func ParseUserRole(s string) (UserRole, error) {
	for _, r := range UserRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown user role %q", s)
}

type Channel string

const (
	ChannelOfficial       Channel = "ufficiale"
	ChannelParents        Channel = "genitori"
	ChannelUrgent         Channel = "urgenti"
	ChannelAbsences       Channel = "assenze"
	ChannelRepresentative Channel = "rappresentante"
)

var Channels = []Channel{ChannelOfficial, ChannelParents, ChannelUrgent, ChannelAbsences, ChannelRepresentative}

func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Message is immutable once appended to the state.
type Message struct {
	Id        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Role      UserRole  `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Channel   Channel   `json:"channel"`
}

type Settings struct {
	ChatGenitoriEnabled   bool `json:"chatGenitoriEnabled"`
	RappresentanteEnabled bool `json:"rappresentanteEnabled"`
	NotificationsEnabled  bool `json:"notificationsEnabled"`
	DarkMode              bool `json:"darkMode"`
	HapticFeedback        bool `json:"hapticFeedback"`
	Sounds                bool `json:"sounds"`
}

func DefaultSettings() Settings {
	return Settings{
		ChatGenitoriEnabled:   true,
		RappresentanteEnabled: false,
		NotificationsEnabled:  true,
		DarkMode:              false,
		HapticFeedback:        true,
		Sounds:                true,
	}
}

type Profile struct {
	SchoolType SchoolType `json:"schoolType,omitempty"`
	UserRole   UserRole   `json:"userRole,omitempty"`
	UserName   string     `json:"userName"`
	ClassName  string     `json:"className"`
}

// Complete reports whether every profile field has been set.
func (p Profile) Complete() bool {
	return p.SchoolType != "" && p.UserRole != "" && p.UserName != "" && p.ClassName != ""
}

// State is the single unit dispatched against and persisted.
type State struct {
	Profile
	Messages []Message `json:"messages"`
	Settings Settings  `json:"settings"`
}

// Now returns the current time truncated to what survives an ISO-8601
// round trip.
func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
