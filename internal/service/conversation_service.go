package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

// ConversationService turns the two REST message collections into the
// conversation projection and keeps read state consistent with the
// server. All derived state is recomputed from the deduplicated message
// set; nothing here increments standalone counters.
type ConversationService struct {
	messages domain.MessageAPI
	users    domain.UserAPI
}

func NewConversationService(messages domain.MessageAPI, users domain.UserAPI) *ConversationService {
	return &ConversationService{
		messages: messages,
		users:    users,
	}
}

// BuildConversations groups the union of received and sent messages by
// peer. Messages are deduplicated by id before grouping, so a message
// appearing in both inputs counts once. For each peer the last message is
// the one with the maximum CreatedAt (ties resolved by higher id, which
// is unique, keeping the result independent of input order) and the
// unread count is the number of unread inbound messages from that peer.
// The result is ordered by last message time descending, ties by
// ascending peer id.
func BuildConversations(received, sent []domain.Message, currentUserID int64) []domain.Conversation {
	type group struct {
		last   domain.Message
		unread int
	}

	seen := make(map[int64]struct{}, len(received)+len(sent))
	groups := make(map[int64]*group)

	add := func(m domain.Message) {
		if _, dup := seen[m.ID]; dup {
			return
		}
		seen[m.ID] = struct{}{}

		peer := m.PeerID(currentUserID)
		g, ok := groups[peer]
		if !ok {
			g = &group{last: m}
			groups[peer] = g
		} else if m.CreatedAt.After(g.last.CreatedAt) ||
			(m.CreatedAt.Equal(g.last.CreatedAt) && m.ID > g.last.ID) {
			g.last = m
		}
		if m.ReceiverID == currentUserID && m.SenderID == peer && !m.IsRead {
			g.unread++
		}
	}

	for _, m := range received {
		add(m)
	}
	for _, m := range sent {
		add(m)
	}

	convs := make([]domain.Conversation, 0, len(groups))
	for peer, g := range groups {
		convs = append(convs, domain.Conversation{
			PeerID:      peer,
			LastMessage: g.last,
			UnreadCount: g.unread,
		})
	}

	sort.Slice(convs, func(i, j int) bool {
		ti, tj := convs[i].LastMessage.CreatedAt, convs[j].LastMessage.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return convs[i].PeerID < convs[j].PeerID
	})
	return convs
}

// BuildThread filters both collections to the exchange with one peer,
// deduplicates by id and sorts ascending by CreatedAt, oldest first.
// Equal timestamps keep the relative order of first occurrence, so
// repeated calls on the same input never reorder.
func BuildThread(received, sent []domain.Message, peerID, currentUserID int64) []domain.Message {
	seen := make(map[int64]struct{}, len(received)+len(sent))
	var thread []domain.Message

	collect := func(msgs []domain.Message) {
		for _, m := range msgs {
			if m.PeerID(currentUserID) != peerID {
				continue
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			thread = append(thread, m)
		}
	}
	collect(received)
	collect(sent)

	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})
	return thread
}

// MarkThreadRead returns the ids of every unread inbound message in the
// thread. Pure: it never mutates its input; the caller acknowledges each
// id and only then flips local state (see AcknowledgeReads).
func MarkThreadRead(thread []domain.Message, currentUserID int64) []int64 {
	var ids []int64
	for _, m := range thread {
		if m.ReceiverID == currentUserID && !m.IsRead {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Conversations fetches both message collections, builds the projection
// and resolves peer display names (one lookup per distinct peer). REST
// failures propagate unretried.
func (s *ConversationService) Conversations(ctx context.Context, currentUserID int64) ([]domain.Conversation, int, error) {
	list, err := s.messages.Received(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch received: %w", err)
	}
	sent, err := s.messages.Sent(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch sent: %w", err)
	}

	convs := BuildConversations(list.Messages, sent, currentUserID)
	for i := range convs {
		user, err := s.users.Get(ctx, convs[i].PeerID)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve peer %d: %w", convs[i].PeerID, err)
		}
		convs[i].PeerName = user.Username
	}
	return convs, list.Unread, nil
}

// Thread fetches both collections and materializes the exchange with one
// peer in chat-reading order.
func (s *ConversationService) Thread(ctx context.Context, peerID, currentUserID int64) ([]domain.Message, error) {
	list, err := s.messages.Received(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch received: %w", err)
	}
	sent, err := s.messages.Sent(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sent: %w", err)
	}
	return BuildThread(list.Messages, sent, peerID, currentUserID), nil
}

// AcknowledgeReads issues one acknowledgement per unread inbound message
// and returns a copy of the thread where IsRead is flipped only for ids
// whose acknowledgement succeeded. Messages whose acknowledgement failed
// stay unread locally, so local state never runs ahead of the server.
func (s *ConversationService) AcknowledgeReads(ctx context.Context, thread []domain.Message, currentUserID int64) ([]domain.Message, error) {
	ids := MarkThreadRead(thread, currentUserID)

	acked := make(map[int64]struct{}, len(ids))
	var errs []error
	for _, id := range ids {
		if err := s.messages.MarkRead(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("ack message %d: %w", id, err))
			continue
		}
		acked[id] = struct{}{}
	}

	updated := make([]domain.Message, len(thread))
	copy(updated, thread)
	for i := range updated {
		if _, ok := acked[updated[i].ID]; ok {
			updated[i].IsRead = true
		}
	}
	return updated, errors.Join(errs...)
}
