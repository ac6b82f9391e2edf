// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session tracks per-conversation history: a bounded window of
// recent exchanges, rendered as a plain-text block for the generator's
// system content. Two implementations exist: an in-memory manager for
// tests and single-instance deployments, and a BadgerDB-backed manager
// that survives restarts.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxExchanges is the history window per session. Two exchanges
// keep the rendered block small enough to prepend to every system
// prompt without crowding out the instructions.
const DefaultMaxExchanges = 2

// DefaultTTL is how long an idle session survives in persistent
// managers before expiring.
const DefaultTTL = 24 * time.Hour

// Exchange is one completed query/answer pair.
type Exchange struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Manager tracks conversation sessions.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Manager interface {
	// Create starts a new session and returns its ID.
	Create(ctx context.Context) (string, error)

	// AddExchange appends a completed exchange, evicting the oldest
	// entries beyond the history window. Unknown session IDs are
	// created implicitly.
	AddExchange(ctx context.Context, sessionID, query, answer string) error

	// History returns the session's recent exchanges rendered as a
	// plain-text block, or "" for an unknown or empty session.
	History(ctx context.Context, sessionID string) (string, error)

	// Clear removes a session's history.
	Clear(ctx context.Context, sessionID string) error
}

// newSessionID mints an opaque session identifier.
func newSessionID() string {
	return "session_" + uuid.NewString()
}

// renderHistory formats exchanges the way the generator's system
// content expects them.
func renderHistory(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	lines := make([]string, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		lines = append(lines, "User: "+ex.Query, "Assistant: "+ex.Answer)
	}
	return strings.Join(lines, "\n")
}

// trimWindow drops the oldest exchanges beyond max.
func trimWindow(exchanges []Exchange, max int) []Exchange {
	if max <= 0 || len(exchanges) <= max {
		return exchanges
	}
	return exchanges[len(exchanges)-max:]
}
