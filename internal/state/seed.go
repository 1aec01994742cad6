package state

import (
	"time"

	"github.com/npezzotti/go-classroom/internal/types"
)

func seedTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// SeedMessages are shown on a fresh install.
func SeedMessages() []types.Message {
	return []types.Message{
		{
			Id:        "1",
			Text:      "Benvenuti al nuovo anno scolastico! Vi ricordiamo che domani iniziano le lezioni.",
			Author:    "Dirigente Scolastico",
			Role:      types.RoleTeacher,
			Timestamp: seedTime("2024-09-10T09:00:00Z"),
			Channel:   types.ChannelOfficial,
		},
		{
			Id:        "2",
			Text:      "Ricordiamo a tutti i genitori che la riunione di classe è fissata per venerdì alle 17:00.",
			Author:    "Maestra Elena",
			Role:      types.RoleTeacher,
			Timestamp: seedTime("2024-09-12T14:30:00Z"),
			Channel:   types.ChannelOfficial,
		},
		{
			Id:        "3",
			Text:      "Ciao a tutti! Qualcuno sa se serve comprare i quaderni speciali per matematica?",
			Author:    "Marco Rossi",
			Role:      types.RoleParent,
			Timestamp: seedTime("2024-09-13T08:15:00Z"),
			Channel:   types.ChannelParents,
		},
		{
			Id:        "4",
			Text:      "ATTENZIONE: Domani le lezioni sono sospese per maltempo. Restate a casa!",
			Author:    "Prof. Bianchi",
			Role:      types.RoleTeacher,
			Timestamp: seedTime("2024-09-14T06:45:00Z"),
			Channel:   types.ChannelUrgent,
		},
		{
			Id:        "5",
			Text:      "Mia figlia Giulia sarà assente domani per visita medica.",
			Author:    "Laura Verde",
			Role:      types.RoleParent,
			Timestamp: seedTime("2024-09-15T19:20:00Z"),
			Channel:   types.ChannelAbsences,
		},
	}
}

// DefaultState is the state before anything is configured or loaded.
func DefaultState(seed bool) types.State {
	s := types.State{
		Messages: make([]types.Message, 0),
		Settings: types.DefaultSettings(),
	}
	if seed {
		s.Messages = SeedMessages()
	}
	return s
}
