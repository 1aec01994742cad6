package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/state"
	"github.com/npezzotti/go-classroom/internal/storage"
	"github.com/npezzotti/go-classroom/internal/types"
)

type ProfileRequest struct {
	SchoolType *string `json:"schoolType"`
	UserRole   *string `json:"userRole"`
	UserName   *string `json:"userName"`
	ClassName  *string `json:"className"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type StateResponse struct {
	types.State
	ProfileComplete bool `json:"profileComplete"`
	Loading         bool `json:"loading"`
}

type ChannelInfo struct {
	Id          types.Channel `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	CanWrite    bool          `json:"canWrite"`
}

type NotificationsResponse struct {
	Permission    notify.Permission     `json:"permission"`
	Notifications []notify.Notification `json:"notifications"`
}

type StorageResponse struct {
	Keys []string `json:"keys"`
	Size int      `json:"size"`
}

var channelInfo = map[types.Channel]ChannelInfo{
	types.ChannelOfficial:       {Title: "📢 Ufficiale", Description: "Comunicazioni istituzionali"},
	types.ChannelParents:        {Title: "💬 Genitori", Description: "Chat tra genitori"},
	types.ChannelUrgent:         {Title: "🚨 Urgenti", Description: "Comunicazioni urgenti"},
	types.ChannelAbsences:       {Title: "📋 Assenze", Description: "Gestione assenze"},
	types.ChannelRepresentative: {Title: "🗳️ Rappresentante", Description: "Comunicazioni del rappresentante"},
}

func (s *ClassroomApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ClassroomApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ClassroomApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListKeys(r.Context()); err != nil {
		s.log.Println("health check:", err)
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ClassroomApp) stateResponse() StateResponse {
	st := s.provider.State()
	return StateResponse{
		State:           st,
		ProfileComplete: st.Profile.Complete(),
		Loading:         s.provider.Loading(),
	}
}

func (s *ClassroomApp) getState(w http.ResponseWriter, r *http.Request) {
	s.writeJson(w, http.StatusOK, s.stateResponse())
}

// updateProfile validates every field before applying any of them.
func (s *ClassroomApp) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError("invalid json body"))
		return
	}

	var (
		schoolType types.SchoolType
		role       types.UserRole
		err        error
	)
	if req.SchoolType != nil {
		if schoolType, err = types.ParseSchoolType(*req.SchoolType); err != nil {
			s.writeError(w, NewBadRequestError(err.Error()))
			return
		}
	}
	if req.UserRole != nil {
		if role, err = types.ParseUserRole(*req.UserRole); err != nil {
			s.writeError(w, NewBadRequestError(err.Error()))
			return
		}
	}

	if req.SchoolType != nil {
		s.provider.SetSchoolType(schoolType)
	}
	if req.UserRole != nil {
		s.provider.SetUserRole(role)
	}
	if req.UserName != nil {
		s.provider.SetUserName(*req.UserName)
	}
	if req.ClassName != nil {
		s.provider.SetClassName(*req.ClassName)
	}

	s.writeJson(w, http.StatusOK, s.stateResponse())
}

func (s *ClassroomApp) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch types.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, NewBadRequestError("invalid json body"))
		return
	}

	s.provider.UpdateSettings(patch)
	s.writeJson(w, http.StatusOK, s.provider.State().Settings)
}

func (s *ClassroomApp) getChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.provider.AvailableChannels()
	resp := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		info := channelInfo[ch]
		info.Id = ch
		info.CanWrite = s.provider.CanWrite(ch)
		resp = append(resp, info)
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *ClassroomApp) channelFromPath(w http.ResponseWriter, r *http.Request) (types.Channel, bool) {
	ch, err := types.ParseChannel(r.PathValue("channel"))
	if err != nil {
		s.writeError(w, NewNotFoundError(err.Error()))
		return "", false
	}
	return ch, true
}

func (s *ClassroomApp) getMessages(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.channelFromPath(w, r)
	if !ok {
		return
	}

	s.writeJson(w, http.StatusOK, s.provider.MessagesForChannel(ch))
}

func (s *ClassroomApp) addMessage(w http.ResponseWriter, r *http.Request) {
	ch, ok := s.channelFromPath(w, r)
	if !ok {
		return
	}

	if !s.provider.CanWrite(ch) {
		s.writeError(w, NewForbiddenError("current role cannot write to "+string(ch)))
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError("invalid json body"))
		return
	}

	msg, err := s.provider.AddMessage(ch, req.Text)
	if err != nil {
		if errors.Is(err, state.ErrEmptyMessage) {
			s.writeError(w, NewBadRequestError(err.Error()))
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *ClassroomApp) getNotifications(w http.ResponseWriter, r *http.Request) {
	n := s.provider.Notifier()
	s.writeJson(w, http.StatusOK, NotificationsResponse{
		Permission:    n.Permission(),
		Notifications: n.Notifications(),
	})
}

func (s *ClassroomApp) clearNotifications(w http.ResponseWriter, r *http.Request) {
	s.provider.Notifier().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *ClassroomApp) simulateNotifications(w http.ResponseWriter, r *http.Request) {
	handles, err := s.provider.Notifier().SimulateSchoolNotifications()
	if err != nil {
		if errors.Is(err, notify.ErrPermissionRequired) {
			s.writeError(w, NewForbiddenError(notify.PromptBody))
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusAccepted, map[string]int{"scheduled": len(handles)})
}

func (s *ClassroomApp) getStorage(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListKeys(r.Context())
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	size, err := storage.Size(r.Context(), s.store)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, StorageResponse{Keys: keys, Size: size})
}

func (s *ClassroomApp) clearStorage(w http.ResponseWriter, r *http.Request) {
	if err := storage.ClearAll(r.Context(), s.store); err != nil {
		s.log.Println("clear storage:", err)
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *ClassroomApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	s.feed.Subscribe(conn)
}
