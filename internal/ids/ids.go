// Package ids generates and parses the identifiers used across peer
// sessions, forwarded requests, tasks and direct messages.
package ids

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// NewCorrelationID generates an opaque id for a forwarded request. uuid is
// used here (not xid) because correlation ids are purely internal
// handshake tokens with no ordering requirement.
func NewCorrelationID() string {
	return uuid.NewString()
}

// NewMessageID generates a direct-message id.
func NewMessageID() string {
	return uuid.NewString()
}

// NewTaskID generates a task id. xid embeds a creation timestamp and sorts
// lexically by creation order; the task queue itself keeps its FIFO and
// history order by insertion, not by comparing ids.
func NewTaskID() string {
	return fmt.Sprintf("task-%s", xid.New().String())
}

// NewSessionID generates a peer session id, used only for log correlation;
// sessions are otherwise addressed by tabId/clientId.
func NewSessionID() string {
	return xid.New().String()
}

// NormalizeTabID defaults an empty tab id to "default", per the data model.
func NormalizeTabID(tabID string) string {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return "default"
	}
	return tabID
}
