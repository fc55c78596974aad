package ramp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/model"
	"github.com/pendulum-chain/vortex-sub005/internal/store"
)

// StoreRepository keeps ramp states in postgres through the gorm stores.
type StoreRepository struct {
	db    *gorm.DB
	store *store.Store
}

func NewStoreRepository(db *gorm.DB, s *store.Store) *StoreRepository {
	return &StoreRepository{db: db, store: s}
}

func (r *StoreRepository) Load(ctx context.Context, sessionID string) (*model.RampState, error) {
	record, err := r.store.RampState.GetBySessionID(r.db.WithContext(ctx), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "load ramp state")
	}
	return decodeRecord(record)
}

func (r *StoreRepository) Save(ctx context.Context, state *model.RampState) error {
	record, err := encodeRecord(state)
	if err != nil {
		return err
	}
	return pkgerrors.Wrap(r.store.RampState.Upsert(r.db.WithContext(ctx), record), "save ramp state")
}

func (r *StoreRepository) Create(ctx context.Context, state *model.RampState) error {
	record, err := encodeRecord(state)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)
	inserted, err := r.store.RampState.Insert(db, record)
	if err != nil {
		return pkgerrors.Wrap(err, "insert ramp state")
	}
	if inserted {
		return nil
	}
	replaced, err := r.store.RampState.ReplaceFinished(db, record)
	if err != nil {
		return pkgerrors.Wrap(err, "replace finished ramp state")
	}
	if !replaced {
		return ErrActiveFlow
	}
	return nil
}

func (r *StoreRepository) Clear(ctx context.Context, sessionID string) error {
	return store.DoInTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := r.store.SubmittedTransaction.DeleteBySession(tx, sessionID); err != nil {
			return pkgerrors.Wrap(err, "delete submitted transactions")
		}
		if err := r.store.UserTransaction.DeleteBySession(tx, sessionID); err != nil {
			return pkgerrors.Wrap(err, "delete user transactions")
		}
		return pkgerrors.Wrap(r.store.RampState.Delete(tx, sessionID), "delete ramp state")
	})
}

func (r *StoreRepository) ListActive(ctx context.Context) ([]*model.RampState, error) {
	records, err := r.store.RampState.ListActive(r.db.WithContext(ctx))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list active ramp states")
	}
	out := make([]*model.RampState, 0, len(records))
	for i := range records {
		state, err := decodeRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, nil
}

func encodeRecord(state *model.RampState) (*model.RampStateRecord, error) {
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode ramp state")
	}
	record := &model.RampStateRecord{
		SessionID:  state.SessionID,
		FlowType:   string(state.FlowType),
		Phase:      string(state.Phase),
		InProgress: state.InProgress,
		State:      string(blob),
		CreatedAt:  state.CreatedAt,
		UpdatedAt:  state.UpdatedAt,
	}
	if state.Failure != nil {
		record.FailureKind = string(state.Failure.Kind)
	}
	return record, nil
}

func decodeRecord(record *model.RampStateRecord) (*model.RampState, error) {
	var state model.RampState
	if err := json.Unmarshal([]byte(record.State), &state); err != nil {
		return nil, pkgerrors.Wrapf(err, "decode ramp state %s", record.SessionID)
	}
	return &state, nil
}

// MemoryRepository is a process-local IRepository for tests and single-node development.
type MemoryRepository struct {
	mu     sync.Mutex
	states map[string]*model.RampState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: map[string]*model.RampState{}}
}

func (r *MemoryRepository) Load(_ context.Context, sessionID string) (*model.RampState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, state *model.RampState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.SessionID] = state.Clone()
	return nil
}

func (r *MemoryRepository) Create(_ context.Context, state *model.RampState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.states[state.SessionID]; ok && !existing.IsTerminal() {
		return ErrActiveFlow
	}
	r.states[state.SessionID] = state.Clone()
	return nil
}

func (r *MemoryRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
	return nil
}

func (r *MemoryRepository) ListActive(_ context.Context) ([]*model.RampState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.RampState, 0, len(r.states))
	for _, state := range r.states {
		if state.IsTerminal() || state.IsFailed() {
			continue
		}
		out = append(out, state.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
