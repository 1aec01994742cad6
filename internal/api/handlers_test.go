package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-classroom/internal/feed"
	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/state"
	"github.com/npezzotti/go-classroom/internal/storage"
	"github.com/npezzotti/go-classroom/internal/testutil"
	"github.com/npezzotti/go-classroom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func (app *testApp) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	app.mux.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("connection refused"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			store := &storage.MockStore{}
			defer store.AssertExpectations(t)
			store.On("ListKeys", mock.Anything).Return([]string{}, tc.mockErr).Once()

			app := &ClassroomApp{log: testutil.TestLogger(t), store: store}
			rr := httptest.NewRecorder()
			app.healthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
				assert.Equal(t, "OK", rr.Body.String(), "expected response body to be 'OK'")
			}
		})
	}
}

func Test_getState(t *testing.T) {
	app := newTestApp(t, false)

	rr := app.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")

	resp := decode[StateResponse](t, rr)
	assert.False(t, resp.Loading, "expected state to be loaded")
	assert.False(t, resp.ProfileComplete, "expected a fresh profile to be incomplete")
	assert.Len(t, resp.Messages, 5, "expected demo messages")
	assert.Equal(t, types.DefaultSettings(), resp.Settings)
}

func Test_updateProfile(t *testing.T) {
	tcases := []struct {
		name         string
		body         string
		expectedCode int
		expected     types.Profile
	}{
		{
			name:         "complete profile",
			body:         `{"schoolType":"medie","userRole":"insegnante","userName":"Prof. Bianchi","className":"2A"}`,
			expectedCode: http.StatusOK,
			expected: types.Profile{
				SchoolType: types.SchoolMiddle,
				UserRole:   types.RoleTeacher,
				UserName:   "Prof. Bianchi",
				ClassName:  "2A",
			},
		},
		{
			name:         "partial update",
			body:         `{"userName":"Anna"}`,
			expectedCode: http.StatusOK,
			expected:     types.Profile{UserName: "Anna"},
		},
		{
			name:         "unknown school type",
			body:         `{"schoolType":"universita","userRole":"insegnante"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown role",
			body:         `{"userName":"Anna","userRole":"preside"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "invalid json",
			body:         `{"userName":`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, false)

			rr := app.do(t, http.MethodPut, "/api/profile", tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode != http.StatusOK {
				apiErr := decode[ApiError](t, rr)
				assert.Equal(t, tc.expectedCode, apiErr.StatusCode)
				assert.Equal(t, types.Profile{}, app.provider.State().Profile, "expected rejected request not to change the profile")
				return
			}

			resp := decode[StateResponse](t, rr)
			assert.Equal(t, tc.expected, resp.Profile)
			assert.Equal(t, tc.expected.Complete(), resp.ProfileComplete)
		})
	}
}

func Test_updateSettings(t *testing.T) {
	app := newTestApp(t, false)

	rr := app.do(t, http.MethodPatch, "/api/settings", `{"notificationsEnabled":false,"darkMode":true}`)
	require.Equal(t, http.StatusOK, rr.Code)

	expected := types.DefaultSettings()
	expected.NotificationsEnabled = false
	expected.DarkMode = true
	assert.Equal(t, expected, decode[types.Settings](t, rr))
	assert.Equal(t, expected, app.provider.State().Settings)

	rr = app.do(t, http.MethodPatch, "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func Test_getChannels(t *testing.T) {
	tcases := []struct {
		role     types.UserRole
		expected []ChannelInfo
	}{
		{
			role: "",
			expected: []ChannelInfo{
				{Id: types.ChannelOfficial, Title: "📢 Ufficiale", Description: "Comunicazioni istituzionali"},
				{Id: types.ChannelAbsences, Title: "📋 Assenze", Description: "Gestione assenze", CanWrite: true},
			},
		},
		{
			role: types.RoleTeacher,
			expected: []ChannelInfo{
				{Id: types.ChannelOfficial, Title: "📢 Ufficiale", Description: "Comunicazioni istituzionali", CanWrite: true},
				{Id: types.ChannelAbsences, Title: "📋 Assenze", Description: "Gestione assenze", CanWrite: true},
				{Id: types.ChannelUrgent, Title: "🚨 Urgenti", Description: "Comunicazioni urgenti", CanWrite: true},
			},
		},
		{
			role: types.RoleParent,
			expected: []ChannelInfo{
				{Id: types.ChannelOfficial, Title: "📢 Ufficiale", Description: "Comunicazioni istituzionali"},
				{Id: types.ChannelAbsences, Title: "📋 Assenze", Description: "Gestione assenze", CanWrite: true},
				{Id: types.ChannelParents, Title: "💬 Genitori", Description: "Chat tra genitori", CanWrite: true},
			},
		},
	}

	for _, tc := range tcases {
		t.Run(string(tc.role), func(t *testing.T) {
			app := newTestApp(t, false)
			app.provider.SetUserRole(tc.role)

			rr := app.do(t, http.MethodGet, "/api/channels", "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.expected, decode[[]ChannelInfo](t, rr))
		})
	}
}

func Test_getMessages(t *testing.T) {
	app := newTestApp(t, false)

	tcases := []struct {
		channel      string
		expectedCode int
		expectedLen  int
	}{
		{"ufficiale", http.StatusOK, 2},
		{"genitori", http.StatusOK, 1},
		{"rappresentante", http.StatusOK, 0},
		{"cortile", http.StatusNotFound, 0},
	}

	for _, tc := range tcases {
		t.Run(tc.channel, func(t *testing.T) {
			rr := app.do(t, http.MethodGet, "/api/channels/"+tc.channel+"/messages", "")
			require.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode != http.StatusOK {
				return
			}

			msgs := decode[[]types.Message](t, rr)
			assert.NotNil(t, msgs, "expected an empty list rather than null")
			assert.Len(t, msgs, tc.expectedLen)
			for _, m := range msgs {
				assert.Equal(t, types.Channel(tc.channel), m.Channel)
			}
		})
	}
}

func Test_addMessage(t *testing.T) {
	tcases := []struct {
		name         string
		role         types.UserRole
		channel      string
		body         string
		expectedCode int
	}{
		{
			name:         "teacher posts urgent",
			role:         types.RoleTeacher,
			channel:      "urgenti",
			body:         `{"text":"  Scuola chiusa domani  "}`,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "parent cannot post official",
			role:         types.RoleParent,
			channel:      "ufficiale",
			body:         `{"text":"ciao"}`,
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "representative channel is read-only",
			role:         types.RoleRepresentative,
			channel:      "rappresentante",
			body:         `{"text":"riunione"}`,
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "blank text",
			role:         types.RoleParent,
			channel:      "assenze",
			body:         `{"text":"   "}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "invalid json",
			role:         types.RoleParent,
			channel:      "assenze",
			body:         `{"text":`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown channel",
			role:         types.RoleTeacher,
			channel:      "cortile",
			body:         `{"text":"ciao"}`,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, false)
			app.provider.SetUserRole(tc.role)
			app.provider.SetUserName("Prof. Bianchi")
			before := len(app.provider.State().Messages)

			rr := app.do(t, http.MethodPost, "/api/channels/"+tc.channel+"/messages", tc.body)
			assert.Equal(t, tc.expectedCode, rr.Code)

			if tc.expectedCode != http.StatusCreated {
				assert.Len(t, app.provider.State().Messages, before, "expected rejected message not to be added")
				return
			}

			msg := decode[types.Message](t, rr)
			assert.Equal(t, "Scuola chiusa domani", msg.Text)
			assert.Equal(t, "Prof. Bianchi", msg.Author)
			assert.Equal(t, tc.role, msg.Role)
			assert.Equal(t, types.Channel(tc.channel), msg.Channel)
			assert.NotEmpty(t, msg.Id)
			assert.Len(t, app.provider.State().Messages, before+1)
		})
	}
}

func Test_notifications(t *testing.T) {
	t.Run("simulate and clear", func(t *testing.T) {
		app := newTestApp(t, false)

		rr := app.do(t, http.MethodPost, "/api/notifications/simulate", "")
		require.Equal(t, http.StatusAccepted, rr.Code)
		assert.Equal(t, map[string]int{"scheduled": 4}, decode[map[string]int](t, rr))

		require.Eventually(t, func() bool {
			return len(app.provider.Notifier().Notifications()) == 4
		}, time.Second, 5*time.Millisecond, "expected every simulated notification to surface")

		rr = app.do(t, http.MethodGet, "/api/notifications", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Permission    string                `json:"permission"`
			Notifications []notify.Notification `json:"notifications"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, notify.PermissionGranted.String(), resp.Permission)
		assert.Len(t, resp.Notifications, 4)

		rr = app.do(t, http.MethodDelete, "/api/notifications", "")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, app.provider.Notifier().Notifications())
	})

	t.Run("simulate without permission", func(t *testing.T) {
		app := newTestApp(t, true)

		rr := app.do(t, http.MethodPost, "/api/notifications/simulate", "")
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, notify.PromptBody, decode[ApiError](t, rr).Detail)
	})
}

func Test_storage(t *testing.T) {
	app := newTestApp(t, false)
	require.NoError(t, app.provider.Flush(context.Background()))

	rr := app.do(t, http.MethodGet, "/api/storage", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[StorageResponse](t, rr)
	assert.Equal(t, []string{state.DefaultStorageKey}, resp.Keys)
	assert.Positive(t, resp.Size)

	rr = app.do(t, http.MethodDelete, "/api/storage", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	keys, err := app.store.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys, "expected storage to be cleared")
	assert.Len(t, app.provider.State().Messages, 5, "expected in-memory state to be untouched")
}

func Test_serveWs(t *testing.T) {
	app := newTestApp(t, false)
	srv := httptest.NewServer(app.mux.Handler)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("disallowed origin", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial(url, header)
		assert.Error(t, err, "expected handshake to fail")
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("receives notifications", func(t *testing.T) {
		header := http.Header{"Origin": []string{"http://localhost:5173"}}
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		require.NoError(t, err)
		defer conn.Close()

		var evt feed.Event
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, feed.EventHello, evt.Type)

		app.provider.SetUserRole(types.RoleTeacher)
		_, err = app.provider.AddMessage(types.ChannelUrgent, "Uscita anticipata")
		require.NoError(t, err)

		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, feed.EventNotification, evt.Type)
		require.NotNil(t, evt.Notification)
		assert.Equal(t, "💬 Nuovo messaggio in urgenti", evt.Notification.Title)
		assert.Equal(t, "Uscita anticipata", evt.Notification.Body)
	})
}
