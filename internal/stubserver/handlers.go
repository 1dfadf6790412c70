package stubserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/security"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "hashing failed")
		return
	}
	user, err := s.store.createUser(req.Username, req.Email, hashed)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "email already registered")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acct, ok := s.store.userByEmail(req.Email)
	if !ok || security.VerifyPassword(req.Password, acct.hashedPassword) != nil {
		writeDetail(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	token, err := s.tokens.CreateForUser(acct.Email)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token creation failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleReceived(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	msgs, unread := s.store.receivedMessages(user.ID)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, domain.MessageList{Messages: msgs, Unread: unread})
}

func (s *Server) handleSent(w http.ResponseWriter, r *http.Request) {
	msgs := s.store.sentMessages(currentUser(r).ID)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

type messageCreateRequest struct {
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiver_id"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var req messageCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeDetail(w, http.StatusBadRequest, "message content cannot be empty")
		return
	}
	if _, ok := s.store.userByID(req.ReceiverID); !ok {
		writeDetail(w, http.StatusNotFound, "receiver not found")
		return
	}
	msg := s.store.createMessage(user.ID, req.ReceiverID, req.Content)

	// Push to the receiver's live connections, like the real backend.
	s.hub.sendToUser(msg.ReceiverID, map[string]any{
		"type":    "new_message",
		"message": msg,
	})

	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	messageID, err := strconv.ParseInt(chi.URLParam(r, "messageID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, ok := s.store.markRead(messageID, user.ID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "message not found")
		return
	}

	// Let the sender know their message was read.
	s.hub.sendToUser(msg.SenderID, map[string]any{
		"type":       "message_read",
		"message_id": msg.ID,
		"reader_id":  user.ID,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "message marked as read"})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	otherID, err := strconv.ParseInt(chi.URLParam(r, "otherUserID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	msgs := s.store.conversation(user.ID, otherID)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listEvents())
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.EventCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := s.store.createEvent(req, currentUser(r).ID)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "an event with this title already exists")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid event id")
		return
	}
	ev, ok := s.store.eventByID(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listUsers())
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users := s.store.searchUsers(r.URL.Query().Get("query"))
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, ok := s.store.userByID(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
