// Package domain contains the core data model of the messenger.
// This file defines the Chat aggregate and the pure transformations
// applied to it under the store's per-key mutation discipline.
package domain

import (
	"fmt"

	"github.com/samber/lo"
)

type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
)

// Chat is the conversation aggregate: the full message log plus the
// per-participant read markers. It is always persisted and mutated as a whole.
type Chat struct {
	ID             string   `json:"id"`
	Type           ChatType `json:"type"`
	Name           string   `json:"name,omitempty"`   // group chats only
	Avatar         string   `json:"avatar,omitempty"` // group chats only
	ParticipantIDs []string  `json:"participantIds"`
	Messages       []Message `json:"messages"`
	CreatedAt      int64     `json:"createdAt"` // epoch millis, immutable
	UpdatedAt      int64     `json:"updatedAt"` // epoch millis, advanced by every mutation
	// LastReadTimestamp maps participant id to the instant they last viewed
	// the chat. Absent entries mean never read.
	LastReadTimestamp map[string]int64 `json:"lastReadTimestamp,omitempty"`
}

func (c Chat) HasParticipant(userID string) bool {
	return lo.Contains(c.ParticipantIDs, userID)
}

// Summary returns the chat without its message log, the shape served by the
// list endpoint and consumed by the global poll.
func (c Chat) Summary() Chat {
	c.Messages = nil
	return c
}

// Append adds a server-stamped message to the log and advances UpdatedAt to
// the message timestamp, preserving UpdatedAt >= max(message timestamps).
func (c *Chat) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	if msg.Timestamp > c.UpdatedAt {
		c.UpdatedAt = msg.Timestamp
	}
}

// MarkRead records that userID viewed the chat at the given instant.
// The marker never moves backwards. UpdatedAt is deliberately left alone:
// a read is not activity, and advancing it would make every reader trigger
// refetches in all other participants' global polls.
func (c *Chat) MarkRead(userID string, at int64) {
	if c.LastReadTimestamp == nil {
		c.LastReadTimestamp = make(map[string]int64)
	}
	if at > c.LastReadTimestamp[userID] {
		c.LastReadTimestamp[userID] = at
	}
}

// UnreadCount counts messages newer than userID's read marker.
// A missing marker counts every message as unread.
func (c Chat) UnreadCount(userID string) int {
	lastRead := c.LastReadTimestamp[userID]
	return lo.CountBy(c.Messages, func(m Message) bool {
		return m.Timestamp > lastRead
	})
}

// CheckInvariants verifies the aggregate's structural guarantees. It is used
// by tests and by the inspect tooling, never on the hot path.
func (c Chat) CheckInvariants() error {
	if len(c.ParticipantIDs) < 2 {
		return fmt.Errorf("chat %s has %d participants, need at least 2", c.ID, len(c.ParticipantIDs))
	}
	if c.Type == ChatGroup && c.Name == "" {
		return fmt.Errorf("group chat %s has no name", c.ID)
	}
	prev := int64(0)
	for _, m := range c.Messages {
		if m.Timestamp < prev {
			return fmt.Errorf("chat %s message %s out of order", c.ID, m.ID)
		}
		if m.Timestamp > c.UpdatedAt {
			return fmt.Errorf("chat %s updatedAt behind message %s", c.ID, m.ID)
		}
		prev = m.Timestamp
	}
	return nil
}
