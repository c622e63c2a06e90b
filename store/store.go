// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store persists run outcomes in an embedded BadgerDB. Recording is
// idempotent per workflow: re-recording overwrites the previous outcome.
package store

import (
	"context"
	"encoding/json"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// RunStatus is the run-level terminal status, distinct from publishStatus.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Outcome is the persisted record of one run. All fields except WorkflowID
// may be absent when upstream steps failed.
type Outcome struct {
	WorkflowID    string             `json:"workflow_id"`
	RunStatus     RunStatus          `json:"run_status"`
	PublishStatus string             `json:"publish_status"`
	Content       string             `json:"content,omitempty"`
	ImageURL      string             `json:"image_url,omitempty"`
	PublishedURL  string             `json:"published_url,omitempty"`
	Error         string             `json:"error,omitempty"`
	APICosts      map[string]float64 `json:"api_costs,omitempty"`
	RecordedAt    time.Time          `json:"recorded_at"`
}

// Store is the persistence contract consumed by the persist step.
type Store interface {
	RecordOutcome(ctx context.Context, o *Outcome) error
	GetOutcome(ctx context.Context, workflowID string) (*Outcome, error)
	Close() error
}

// ErrNotFound is returned when no outcome exists for a workflow.
var ErrNotFound = errors.New("outcome not found")

// BadgerStore keeps outcomes in an embedded key-value store keyed by
// workflow id.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) a store at path.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open store at %s", path)
	}
	return &BadgerStore{db: db}, nil
}

// OpenInMemory opens a store with no disk persistence (tests).
func OpenInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory store")
	}
	return &BadgerStore{db: db}, nil
}

func outcomeKey(workflowID string) []byte {
	return []byte("outcome/" + workflowID)
}

// RecordOutcome implements Store.
func (s *BadgerStore) RecordOutcome(ctx context.Context, o *Outcome) error {
	if o == nil || o.WorkflowID == "" {
		return errors.New("outcome requires a workflow id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}
	data, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "encode outcome")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(outcomeKey(o.WorkflowID), data)
	})
	return errors.Wrapf(err, "record outcome for %s", o.WorkflowID)
}

// GetOutcome implements Store.
func (s *BadgerStore) GetOutcome(ctx context.Context, workflowID string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out Outcome
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(outcomeKey(workflowID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get outcome for %s", workflowID)
	}
	return &out, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
