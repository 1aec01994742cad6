package state

import "github.com/npezzotti/go-classroom/internal/types"

// AvailableChannels depends on the role only. Official and absences are
// always listed; parents and urgent follow the role.
func AvailableChannels(role types.UserRole) []types.Channel {
	channels := []types.Channel{types.ChannelOfficial, types.ChannelAbsences}

	if role == types.RoleParent || role == types.RoleRepresentative {
		channels = append(channels, types.ChannelParents)
	}

	if role == types.RoleTeacher {
		channels = append(channels, types.ChannelUrgent)
	}

	return channels
}

// CanWrite reports whether role may post to channel. The representative
// channel is read-only for every role.
func CanWrite(role types.UserRole, channel types.Channel) bool {
	switch channel {
	case types.ChannelOfficial, types.ChannelUrgent:
		return role == types.RoleTeacher
	case types.ChannelParents:
		return role == types.RoleParent || role == types.RoleRepresentative
	case types.ChannelAbsences:
		return true
	}
	return false
}

// MessagesForChannel keeps the order of msgs.
func MessagesForChannel(msgs []types.Message, channel types.Channel) []types.Message {
	out := make([]types.Message, 0)
	for _, m := range msgs {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}
