package nowcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/earnscope/earnscope/internal/domain"
)

// stateTTL keeps day-scoped state around long enough to survive a restart
// but not long enough to leak into a later week.
const stateTTL = 48 * time.Hour

// StateStore persists per-symbol EWMA state keyed by trade date.
type StateStore interface {
	Get(ctx context.Context, tradeDate time.Time, symbol string) (*domain.EWMAState, error)
	Put(ctx context.Context, state *domain.EWMAState) error
}

// RedisStore keeps EWMA state in Redis under nowcast:{date}:{symbol}.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stateKey(tradeDate time.Time, symbol string) string {
	return fmt.Sprintf("nowcast:%s:%s", tradeDate.Format("2006-01-02"), symbol)
}

// Get returns the stored state or nil when the symbol has no state for the
// day yet.
func (s *RedisStore) Get(ctx context.Context, tradeDate time.Time, symbol string) (*domain.EWMAState, error) {
	data, err := s.client.Get(ctx, stateKey(tradeDate, symbol)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nowcast state for %s: %w", symbol, err)
	}
	var state domain.EWMAState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode nowcast state for %s: %w", symbol, err)
	}
	return &state, nil
}

// Put stores the state with a bounded TTL.
func (s *RedisStore) Put(ctx context.Context, state *domain.EWMAState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode nowcast state for %s: %w", state.Symbol, err)
	}
	key := stateKey(state.TradeDate, state.Symbol)
	if err := s.client.Set(ctx, key, data, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to write nowcast state for %s: %w", state.Symbol, err)
	}
	return nil
}

// MemoryStore is an in-process StateStore for tests and single-shot runs.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*domain.EWMAState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*domain.EWMAState)}
}

func (s *MemoryStore) Get(_ context.Context, tradeDate time.Time, symbol string) (*domain.EWMAState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[stateKey(tradeDate, symbol)]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, state *domain.EWMAState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	s.states[stateKey(state.TradeDate, state.Symbol)] = &cp
	return nil
}
