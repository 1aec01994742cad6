package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-classroom/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler_PanicRecovery(t *testing.T) {
	tcases := []struct {
		name     string
		panicVal any
		expected string
	}{
		{
			name:     "error value",
			panicVal: errors.New("test panic"),
			expected: "panic: test panic",
		},
		{
			name:     "string value",
			panicVal: "boom",
			expected: "panic: boom",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			app := &ClassroomApp{
				log: testutil.TestLogger(t),
			}
			app.log.SetOutput(buf)

			panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tc.panicVal)
			})

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			app.errorHandler(panicHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.Equal(t, "close", rr.Header().Get("Connection"))
			assert.Contains(t, buf.String(), tc.expected)
		})
	}
}

func Test_errorHandler_NoPanic(t *testing.T) {
	app := &ClassroomApp{}

	called := false
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	app.errorHandler(okHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.True(t, called, "expected handler to be called")
}

func Test_noCache(t *testing.T) {
	h := noCache(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
}
