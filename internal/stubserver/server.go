// Package stubserver is an in-memory stand-in for the real backend. The
// production API lives in another repository; this stub implements just
// enough of its REST and WebSocket surface for local development and for
// exercising the client end to end.
package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/security"
)

type Server struct {
	store  *memStore
	hub    *hub
	tokens *security.TokenService
}

func New(tokens *security.TokenService) *Server {
	return &Server{
		store:  newMemStore(),
		hub:    newHub(),
		tokens: tokens,
	}
}

// Handler builds the router. Paths mirror the production backend: the
// client must not be able to tell the two apart.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Browser-based dev clients hit the stub directly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/messages", func(r chi.Router) {
			r.Get("/received", s.handleReceived)
			r.Get("/sent", s.handleSent)
			r.Post("/", s.handleSendMessage)
			r.Put("/{messageID}/read", s.handleMarkRead)
			r.Get("/conversation/{otherUserID}", s.handleConversation)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Post("/", s.handleCreateEvent)
			r.Get("/{eventID}", s.handleGetEvent)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Get("/search", s.handleSearchUsers)
			r.Get("/{userID}", s.handleGetUser)
		})
	})

	// The backend authenticates the socket by token-in-path.
	r.Get("/ws/{token}", s.handleWebSocket)

	return r
}

type ctxKey int

const userKey ctxKey = 0

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeDetail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.userFromToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (s *Server) userFromToken(tokenStr string) (*domain.User, error) {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	email, err := claims.GetSubject()
	if err != nil || email == "" {
		return nil, domain.ErrUnauthorized
	}
	acct, ok := s.store.userByEmail(email)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	u := acct.User
	return &u, nil
}

func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey).(*domain.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeDetail mirrors FastAPI's {"detail": ...} error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
