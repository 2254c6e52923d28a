package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"recipe-planner/internal/apperr"
	"recipe-planner/internal/storage"
)

// RecordKey is the storage key the plan lives under.
const RecordKey = "mealPlan"

// Listener receives the plan after every successful save.
type Listener func(WeeklyPlan)

// PlanStats is a diagnostic summary of the stored plan.
type PlanStats struct {
	TotalPlannedMeals int       `json:"totalPlannedMeals"`
	SizeBytes         int       `json:"sizeBytes"`
	LastModified      time.Time `json:"lastModified"`
}

// PlanStore loads and saves the weekly plan and notifies subscribers of
// every successful save. Listeners run synchronously on the saving
// goroutine and must not call Save.
type PlanStore struct {
	store storage.Store
	cfg   SlotConfig
	log   *zap.Logger

	mu       sync.Mutex // guards the stored record
	notifyMu sync.Mutex // keeps notifications in save order

	subMu     sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewPlanStore(store storage.Store, cfg SlotConfig, log *zap.Logger) *PlanStore {
	return &PlanStore{
		store:     store,
		cfg:       cfg,
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Config returns the slot configuration plans are normalized to.
func (s *PlanStore) Config() SlotConfig {
	return s.cfg
}

// Load returns the stored plan. A missing or unreadable record is replaced
// by an empty plan, and a legacy record is re-saved in the current shape.
func (s *PlanStore) Load(ctx context.Context) (WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.store.Get(ctx, RecordKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.log.Info("no stored meal plan, initializing an empty one")
		return s.reset(ctx)
	case err != nil:
		return WeeklyPlan{}, apperr.Storage("failed to load meal plan", err)
	}

	plan, err := Normalize(raw, s.cfg)
	if err != nil {
		s.log.Warn("stored meal plan is invalid, resetting", zap.Error(err))
		return s.reset(ctx)
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	if !bytes.Equal(data, bytes.TrimSpace(raw)) {
		if err := s.store.Put(ctx, RecordKey, data); err != nil {
			// The repaired plan is still usable; the next save persists it.
			s.log.Warn("failed to persist migrated meal plan", zap.Error(err))
		} else {
			s.log.Info("migrated stored meal plan")
		}
	}
	return plan, nil
}

func (s *PlanStore) reset(ctx context.Context) (WeeklyPlan, error) {
	plan := EmptyPlan(s.cfg)
	data, err := json.Marshal(plan)
	if err != nil {
		return WeeklyPlan{}, fmt.Errorf("failed to marshal meal plan: %w", err)
	}
	if err := s.store.Put(ctx, RecordKey, data); err != nil {
		return WeeklyPlan{}, apperr.Storage("failed to save meal plan", err)
	}
	return plan, nil
}

// Save persists plan and, on success, notifies subscribers. On failure
// nothing is notified and the previous record stays in place.
func (s *PlanStore) Save(ctx context.Context, plan WeeklyPlan) error {
	if err := s.checkShape(plan); err != nil {
		return err
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	s.mu.Lock()
	if err := s.store.Put(ctx, RecordKey, data); err != nil {
		s.mu.Unlock()
		return apperr.Storage("failed to save meal plan", err)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.notify(plan)
	return nil
}

// Clear resets the stored plan to the empty plan.
func (s *PlanStore) Clear(ctx context.Context) (WeeklyPlan, error) {
	plan := EmptyPlan(s.cfg)
	if err := s.Save(ctx, plan); err != nil {
		return WeeklyPlan{}, err
	}
	return plan, nil
}

// Subscribe registers fn and returns a function that removes it.
func (s *PlanStore) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

func (s *PlanStore) notify(plan WeeklyPlan) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(plan.Clone())
	}
}

// Stats counts the planned meals in the stored record. An unparsable record
// counts as zero meals.
func (s *PlanStore) Stats(ctx context.Context) (PlanStats, error) {
	var rec storage.Record
	var err error
	if stater, ok := s.store.(storage.Stater); ok {
		rec, err = stater.Stat(ctx, RecordKey)
	} else {
		rec.Data, err = s.store.Get(ctx, RecordKey)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return PlanStats{}, nil
	}
	if err != nil {
		return PlanStats{}, apperr.Storage("failed to read meal plan", err)
	}

	return PlanStats{
		TotalPlannedMeals: s.countStoredMeals(rec.Data),
		SizeBytes:         len(rec.Data),
		LastModified:      rec.UpdatedAt,
	}, nil
}

// countStoredMeals counts through Normalize so records in an older shape
// report the meals Load would return.
func (s *PlanStore) countStoredMeals(raw []byte) int {
	if plan, err := Normalize(raw, s.cfg); err == nil {
		return plan.CountMeals()
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0
	}
	total := 0
	for _, d := range Days {
		var slots map[string]json.RawMessage
		if err := json.Unmarshal(doc[string(d)], &slots); err != nil {
			continue
		}
		for _, meal := range slots {
			if !bytes.Equal(bytes.TrimSpace(meal), []byte("null")) {
				total++
			}
		}
	}
	return total
}

// checkShape rejects plans whose grid differs from the configured one.
func (s *PlanStore) checkShape(plan WeeklyPlan) error {
	if len(plan.Days) != len(Days) {
		return fmt.Errorf("plan has %d days, want %d", len(plan.Days), len(Days))
	}
	for _, d := range Days {
		day, ok := plan.Days[d]
		if !ok {
			return fmt.Errorf("plan is missing %s", d)
		}
		if len(day) != len(s.cfg.mealTypes) {
			return fmt.Errorf("plan day %s has %d meal types, want %d", d, len(day), len(s.cfg.mealTypes))
		}
		for _, mt := range s.cfg.mealTypes {
			if _, ok := day[mt]; !ok {
				return fmt.Errorf("plan day %s is missing %s", d, mt)
			}
		}
	}
	return nil
}
