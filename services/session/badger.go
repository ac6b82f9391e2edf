// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

// Session history is service infrastructure, not searchable user data:
// a lookup by session ID gains nothing from the vector store. BadgerDB
// is embedded, so there is no network dependency, and its native TTL
// expires idle sessions without application-level reaping.
//
// Storage layout:
//
//	session/v1/{sessionID}  →  JSON-encoded []Exchange
//	                           TTL: refreshed on every write

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// sessionKeyPrefix versions the storage layout so the format can change
// without key collisions.
const sessionKeyPrefix = "session/v1/"

// errSessionMiss distinguishes "key absent or expired" from a genuine
// storage failure.
var errSessionMiss = errors.New("session miss")

// BadgerManager persists session history in an embedded BadgerDB.
//
// Description:
//
//	The DB is opened by the caller (typically in main) and shared; this
//	manager does not own its lifecycle. Every write refreshes the TTL,
//	so a session expires only after being idle for the full TTL.
//
// Thread Safety: Safe for concurrent use. BadgerDB transactions are
// per-goroutine.
type BadgerManager struct {
	db           *badger.DB
	ttl          time.Duration
	maxExchanges int
	logger       *slog.Logger
}

// NewBadgerManager creates a BadgerManager over an opened DB.
//
// Inputs:
//   - db: Opened BadgerDB. Must not be nil.
//   - ttl: Idle lifetime per session. Pass 0 for DefaultTTL.
//   - maxExchanges: History window. Pass 0 for DefaultMaxExchanges.
func NewBadgerManager(db *badger.DB, ttl time.Duration, maxExchanges int) *BadgerManager {
	if db == nil {
		panic("NewBadgerManager: db must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxExchanges <= 0 {
		maxExchanges = DefaultMaxExchanges
	}
	return &BadgerManager{db: db, ttl: ttl, maxExchanges: maxExchanges, logger: slog.Default()}
}

// Create implements Manager.
func (m *BadgerManager) Create(ctx context.Context) (string, error) {
	id := newSessionID()
	if err := m.write(id, nil); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// AddExchange implements Manager.
func (m *BadgerManager) AddExchange(ctx context.Context, sessionID, query, answer string) error {
	exchanges, err := m.read(sessionID)
	if err != nil && !errors.Is(err, errSessionMiss) {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	exchanges = trimWindow(append(exchanges, Exchange{Query: query, Answer: answer}), m.maxExchanges)
	if err := m.write(sessionID, exchanges); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// History implements Manager.
func (m *BadgerManager) History(ctx context.Context, sessionID string) (string, error) {
	exchanges, err := m.read(sessionID)
	if errors.Is(err, errSessionMiss) {
		m.logger.Debug("session miss", slog.String("session_id", sessionID))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return renderHistory(exchanges), nil
}

// Clear implements Manager.
func (m *BadgerManager) Clear(ctx context.Context, sessionID string) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(sessionID))
	})
	if err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}

func (m *BadgerManager) read(sessionID string) ([]Exchange, error) {
	var raw []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errSessionMiss
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	var exchanges []Exchange
	if err := json.Unmarshal(raw, &exchanges); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return exchanges, nil
}

func (m *BadgerManager) write(sessionID string, exchanges []Exchange) error {
	raw, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(sessionID), raw).WithTTL(m.ttl)
		return txn.SetEntry(entry)
	})
}

func sessionKey(sessionID string) []byte {
	return []byte(sessionKeyPrefix + sessionID)
}
