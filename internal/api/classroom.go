package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-classroom/internal/config"
	"github.com/npezzotti/go-classroom/internal/feed"
	"github.com/npezzotti/go-classroom/internal/state"
	"github.com/npezzotti/go-classroom/internal/storage"
)

// ClassroomApp serves the state provider to a local UI client.
type ClassroomApp struct {
	log            *log.Logger
	provider       *state.Provider
	store          storage.Store
	feed           *feed.Feed
	mux            *http.Server
	allowedOrigins []string
}

func NewClassroomApp(mux *http.ServeMux, logger *log.Logger, provider *state.Provider, store storage.Store, notifications *feed.Feed, cfg *config.Config) *ClassroomApp {
	s := &ClassroomApp{
		log:            logger,
		provider:       provider,
		store:          store,
		feed:           notifications,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /api/state", noCache(s.getState))
	mux.HandleFunc("PUT /api/profile", s.updateProfile)
	mux.HandleFunc("PATCH /api/settings", s.updateSettings)
	mux.HandleFunc("GET /api/channels", noCache(s.getChannels))
	mux.HandleFunc("GET /api/channels/{channel}/messages", noCache(s.getMessages))
	mux.HandleFunc("POST /api/channels/{channel}/messages", s.addMessage)
	mux.HandleFunc("GET /api/notifications", noCache(s.getNotifications))
	mux.HandleFunc("DELETE /api/notifications", s.clearNotifications)
	mux.HandleFunc("POST /api/notifications/simulate", s.simulateNotifications)
	mux.HandleFunc("GET /api/storage", noCache(s.getStorage))
	mux.HandleFunc("DELETE /api/storage", s.clearStorage)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ClassroomApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ClassroomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
