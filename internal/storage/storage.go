// Package storage keeps the command history in a JSON-backed datastore.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const commandHistoryLimit = 20

// Outcomes recorded for a dispatched command.
const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
	OutcomeUsage  = "usage"
	OutcomeError  = "error"
)

type Storage struct {
	mu     sync.Mutex
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

// CommandRecord is one dispatched command.
type CommandRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Args      string    `json:"args"`
	Outcome   string    `json:"outcome"`
	Datetime  time.Time `json:"datetime"`
}

// Record is everything stored for one guild.
type Record struct {
	CommandHistory []CommandRecord `json:"cmd_history"`
}

func New(filePath string) (*Storage, error) {
	// The datastore autosaves until its context is done.
	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open datastore %s: %w", filePath, err)
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

// Close stops the autosave and writes the datastore to disk.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

func (s *Storage) guildRecord(guildID string) (*Record, error) {
	var record Record
	exists, err := s.ds.Get(guildID, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to read record for guild %s: %w", guildID, err)
	}
	if !exists {
		return &Record{CommandHistory: []CommandRecord{}}, nil
	}
	return &record, nil
}

// AppendCommand adds a command to the guild's history, keeping the most
// recent entries only.
func (s *Storage) AppendCommand(guildID string, rec CommandRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	record.CommandHistory = append(record.CommandHistory, rec)
	if n := len(record.CommandHistory); n > commandHistoryLimit {
		record.CommandHistory = record.CommandHistory[n-commandHistoryLimit:]
	}
	if err := s.ds.Set(guildID, record); err != nil {
		return fmt.Errorf("failed to store record for guild %s: %w", guildID, err)
	}
	return nil
}

// CommandHistory returns the recorded commands, oldest first.
func (s *Storage) CommandHistory(guildID string) ([]CommandRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandHistory, nil
}
