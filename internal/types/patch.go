package types

// SettingsPatch is a partial Settings update. Nil fields are left unchanged,
// which also lets older persisted blobs load after new toggles are added.
type SettingsPatch struct {
	ChatGenitoriEnabled   *bool `json:"chatGenitoriEnabled,omitempty"`
	RappresentanteEnabled *bool `json:"rappresentanteEnabled,omitempty"`
	NotificationsEnabled  *bool `json:"notificationsEnabled,omitempty"`
	DarkMode              *bool `json:"darkMode,omitempty"`
	HapticFeedback        *bool `json:"hapticFeedback,omitempty"`
	Sounds                *bool `json:"sounds,omitempty"`
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.ChatGenitoriEnabled != nil {
		s.ChatGenitoriEnabled = *p.ChatGenitoriEnabled
	}
	if p.RappresentanteEnabled != nil {
		s.RappresentanteEnabled = *p.RappresentanteEnabled
	}
	if p.NotificationsEnabled != nil {
		s.NotificationsEnabled = *p.NotificationsEnabled
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.HapticFeedback != nil {
		s.HapticFeedback = *p.HapticFeedback
	}
	if p.Sounds != nil {
		s.Sounds = *p.Sounds
	}
	return s
}

func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

// StatePatch is the persisted blob as well as the payload used to rehydrate
// state at startup. Absent keys decode to nil and leave state untouched.
type StatePatch struct {
	SchoolType *SchoolType    `json:"schoolType,omitempty"`
	UserRole   *UserRole      `json:"userRole,omitempty"`
	UserName   *string        `json:"userName,omitempty"`
	ClassName  *string        `json:"className,omitempty"`
	Messages   *[]Message     `json:"messages,omitempty"`
	Settings   *SettingsPatch `json:"settings,omitempty"`
}

// PatchFrom builds a patch that sets every field of s.
func PatchFrom(s State) StatePatch {
	var p StatePatch
	if s.SchoolType != "" {
		st := s.SchoolType
		p.SchoolType = &st
	}
	if s.UserRole != "" {
		r := s.UserRole
		p.UserRole = &r
	}
	name, class := s.UserName, s.ClassName
	p.UserName = &name
	p.ClassName = &class

	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	p.Messages = &msgs

	set := s.Settings
	p.Settings = &SettingsPatch{
		ChatGenitoriEnabled:   &set.ChatGenitoriEnabled,
		RappresentanteEnabled: &set.RappresentanteEnabled,
		NotificationsEnabled:  &set.NotificationsEnabled,
		DarkMode:              &set.DarkMode,
		HapticFeedback:        &set.HapticFeedback,
		Sounds:                &set.Sounds,
	}
	return p
}

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool {
	return &b
}
