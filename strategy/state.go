package strategy

import (
	"context"
	"sync"
	"time"
)

// Phase 引擎仓位阶段。
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingRecovery
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingRecovery:
		return "awaiting_recovery"
	default:
		return "unknown"
	}
}

// State 是引擎唯一的可变状态：空仓，或已买入并等待价格回补到 TargetClose。
type State struct {
	Phase        Phase
	TargetClose  float64
	Quantity     float64
	EntryOrderID string
	EnteredAt    time.Time
}

// Idle 返回空仓状态。
func Idle() State { return State{Phase: PhaseIdle} }

// AwaitingRecovery 返回等待回补状态。
func AwaitingRecovery(target, qty float64) State {
	return State{Phase: PhaseAwaitingRecovery, TargetClose: target, Quantity: qty}
}

func (s State) IsIdle() bool { return s.Phase == PhaseIdle }

// StateStore 持久化引擎状态，使进程重启后可以继续跟踪未平仓位。
type StateStore interface {
	// LoadState 第二个返回值为 false 表示尚无记录。
	LoadState(ctx context.Context) (State, bool, error)
	SaveState(ctx context.Context, s State) error
}

// MemoryStore 仅在进程内保存状态，重启即丢失。
type MemoryStore struct {
	mu    sync.Mutex
	state State
	saved bool
	Saves int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// NewMemoryStoreWith 预置一个状态，便于模拟重启恢复。
func NewMemoryStoreWith(s State) *MemoryStore {
	return &MemoryStore{state: s, saved: true}
}

func (m *MemoryStore) LoadState(context.Context) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.saved, nil
}

func (m *MemoryStore) SaveState(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.saved = true
	m.Saves++
	return nil
}
