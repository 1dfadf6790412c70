package stubserver

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

type account struct {
	domain.User
	hashedPassword string
}

// memStore is the in-memory backing state of the dev stub. It only has to
// be good enough to exercise the client end to end.
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextMsgID  int64
	nextEvtID  int64
	users      map[int64]*account
	messages   map[int64]*domain.Message
	events     map[int64]*domain.Event
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*account),
		messages: make(map[int64]*domain.Message),
		events:   make(map[int64]*domain.Event),
	}
}

func (s *memStore) createUser(username, email, hashed string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Email == email || a.Username == username {
			return nil, domain.ErrConflict
		}
	}
	s.nextUserID++
	a := &account{
		User:           domain.User{ID: s.nextUserID, Username: username, Email: email},
		hashedPassword: hashed,
	}
	s.users[a.ID] = a
	u := a.User
	return &u, nil
}

func (s *memStore) userByEmail(email string) (*account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Email == email {
			cp := *a
			return &cp, true
		}
	}
	return nil, false
}

func (s *memStore) userByID(id int64) (*domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return nil, false
	}
	u := a.User
	return &u, true
}

func (s *memStore) listUsers() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]domain.User, 0, len(s.users))
	for _, a := range s.users {
		res = append(res, a.User)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *memStore) searchUsers(query string) []domain.User {
	q := strings.ToLower(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []domain.User
	for _, a := range s.users {
		if strings.Contains(strings.ToLower(a.Username), q) {
			res = append(res, a.User)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *memStore) createMessage(senderID, receiverID int64, content string) *domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	m := &domain.Message{
		ID:         s.nextMsgID,
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages[m.ID] = m
	cp := *m
	return &cp
}

func (s *memStore) receivedMessages(userID int64) ([]domain.Message, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []domain.Message
	unread := 0
	for _, m := range s.messages {
		if m.ReceiverID == userID {
			res = append(res, *m)
			if !m.IsRead {
				unread++
			}
		}
	}
	sortByCreatedDesc(res)
	return res, unread
}

func (s *memStore) sentMessages(userID int64) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []domain.Message
	for _, m := range s.messages {
		if m.SenderID == userID {
			res = append(res, *m)
		}
	}
	sortByCreatedDesc(res)
	return res
}

func (s *memStore) conversation(userID, otherID int64) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []domain.Message
	for _, m := range s.messages {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			res = append(res, *m)
		}
	}
	sortByCreatedDesc(res)
	return res
}

// markRead flips IsRead and returns the message, or false when the
// message does not exist or is not addressed to the reader.
func (s *memStore) markRead(messageID, readerID int64) (*domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok || m.ReceiverID != readerID {
		return nil, false
	}
	m.IsRead = true
	cp := *m
	return &cp, true
}

func (s *memStore) unreadCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n
}

func (s *memStore) createEvent(in domain.EventCreate, organizerID int64) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Title == in.Title {
			return nil, domain.ErrConflict
		}
	}
	s.nextEvtID++
	e := &domain.Event{
		ID:          s.nextEvtID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Location:    in.Location,
		OrganizerID: organizerID,
	}
	s.events[e.ID] = e
	cp := *e
	return &cp, nil
}

func (s *memStore) listEvents() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		res = append(res, *e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *memStore) eventByID(id int64) (*domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func sortByCreatedDesc(msgs []domain.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})
}
