package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MemStore keeps both collections in memory with the same merge-on-write
// semantics as Repo. Used by tests and by the MCP server in dev mode.
type MemStore struct {
	mu          sync.Mutex
	version     int64
	workouts    map[string]map[string]json.RawMessage
	recovery    map[string]map[string]json.RawMessage
	subscribers map[string][]chan struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		workouts:    make(map[string]map[string]json.RawMessage),
		recovery:    make(map[string]map[string]json.RawMessage),
		subscribers: make(map[string][]chan struct{}),
	}
}

func (s *MemStore) UpsertWorkout(_ context.Context, userID, date string, log WorkoutLog) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if _, err := ParseDate(date); err != nil {
		return err
	}
	log = log.Clone()
	log.Recompute()
	return s.upsert(s.workouts, userID, date, log)
}

func (s *MemStore) UpsertRecovery(_ context.Context, userID, date string, rec RecoveryLog) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.upsert(s.recovery, userID, date, rec)
}

func (s *MemStore) upsert(collection map[string]map[string]json.RawMessage, userID, date string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := collection[userID]
	if !ok {
		docs = make(map[string]json.RawMessage)
		collection[userID] = docs
	}
	merged, err := mergeTopLevel(docs[date], data)
	if err != nil {
		return err
	}
	docs[date] = merged
	s.version++

	for _, ch := range s.subscribers[userID] {
		select {
		case ch <- struct{}{}:
		default:
			// a change is already pending for this subscriber
		}
	}
	return nil
}

// mergeTopLevel mirrors the postgres jsonb || operator on objects.
func mergeTopLevel(existing, update json.RawMessage) (json.RawMessage, error) {
	if len(existing) == 0 {
		return update, nil
	}
	base := make(map[string]json.RawMessage)
	if err := json.Unmarshal(existing, &base); err != nil {
		return nil, fmt.Errorf("unmarshal stored document: %w", err)
	}
	overlay := make(map[string]json.RawMessage)
	if err := json.Unmarshal(update, &overlay); err != nil {
		return nil, fmt.Errorf("unmarshal new document: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}

func (s *MemStore) Snapshot(_ context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := &Snapshot{
		UserID:   userID,
		Version:  s.version,
		Workouts: make(History, len(s.workouts[userID])),
		Recovery: make(RecoveryHistory, len(s.recovery[userID])),
	}
	for date, data := range s.workouts[userID] {
		var l WorkoutLog
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("unmarshal workout log %s: %w", date, err)
		}
		l.Recompute()
		snapshot.Workouts[date] = l
	}
	for date, data := range s.recovery[userID] {
		var rec RecoveryLog
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal recovery log %s: %w", date, err)
		}
		snapshot.Recovery[date] = rec
	}
	return snapshot, nil
}

// Subscribe has the same contract as Subscriber.Subscribe.
func (s *MemStore) Subscribe(ctx context.Context, userID string) (<-chan *Snapshot, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	changed := make(chan struct{}, 1)
	changed <- struct{}{} // initial snapshot

	s.mu.Lock()
	s.subscribers[userID] = append(s.subscribers[userID], changed)
	s.mu.Unlock()

	out := make(chan *Snapshot, 1)
	go func() {
		defer close(out)
		defer s.unsubscribe(userID, changed)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				// stored documents that do not decode will not decode on a retry either
				snapshot, err := s.Snapshot(ctx, userID)
				if err != nil {
					log.Errorf("read logs snapshot for [%s]: %s", userID, err)
					return
				}
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *MemStore) unsubscribe(userID string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subscribers[userID]
	for i := range subs {
		if subs[i] == ch {
			s.subscribers[userID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
