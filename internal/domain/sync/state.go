package sync

import (
	gosync "sync"
	"time"
)

// Status фаза движка синхронизации
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusPaused  Status = "paused"
	StatusOffline Status = "offline"
)

// State - неизменяемый снимок состояния синхронизации.
// Progress имеет смысл только при Status == StatusSyncing.
type State struct {
	Status         Status     `json:"status"`
	LastSyncedAt   time.Time  `json:"last_synced_at"`
	PendingChanges int        `json:"pending_changes"`
	Err            error      `json:"-"`
	Progress       *float64   `json:"progress,omitempty"`
}

func (s State) equal(other State) bool {
	if s.Status != other.Status ||
		s.PendingChanges != other.PendingChanges ||
		!s.LastSyncedAt.Equal(other.LastSyncedAt) {
		return false
	}
	if (s.Err == nil) != (other.Err == nil) {
		return false
	}
	if s.Err != nil && s.Err.Error() != other.Err.Error() {
		return false
	}
	if (s.Progress == nil) != (other.Progress == nil) {
		return false
	}
	if s.Progress != nil && *s.Progress != *other.Progress {
		return false
	}
	return true
}

const stateSubBuffer = 8

// StateMachine отслеживает фазу движка и рассылает переходы подписчикам.
// Переходы без фактического изменения состояния подавляются.
type StateMachine struct {
	mu    gosync.RWMutex
	state State
	subs  map[int]chan State
	next  int
}

// NewStateMachine создает машину в состоянии idle
func NewStateMachine(pending int) *StateMachine {
	return &StateMachine{
		state: State{Status: StatusIdle, PendingChanges: pending},
		subs:  make(map[int]chan State),
	}
}

// State возвращает текущий снимок состояния
func (m *StateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe возвращает канал переходов и функцию отписки.
// Медленный подписчик теряет самые старые переходы, но не блокирует машину.
func (m *StateMachine) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan State, stateSubBuffer)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SetSyncing переводит машину в состояние syncing. Значение прогресса
// копируется: опубликованные снимки не должны меняться задним числом,
// когда вызывающий мутирует свою переменную.
func (m *StateMachine) SetSyncing(progress *float64, pending int) {
	var p *float64
	if progress != nil {
		v := *progress
		p = &v
	}
	m.apply(func(s *State) {
		s.Status = StatusSyncing
		s.PendingChanges = pending
		s.Err = nil
		s.Progress = p
	})
}

// SetIdle фиксирует успешное завершение цикла
func (m *StateMachine) SetIdle(lastSyncedAt time.Time, pending int) {
	m.apply(func(s *State) {
		s.Status = StatusIdle
		s.LastSyncedAt = lastSyncedAt
		s.PendingChanges = pending
		s.Err = nil
		s.Progress = nil
	})
}

// SetError фиксирует сбой цикла. Состояние error носит информационный
// характер и не блокирует последующие вызовы SyncNow.
func (m *StateMachine) SetError(err error, pending int) {
	m.apply(func(s *State) {
		s.Status = StatusError
		s.PendingChanges = pending
		s.Err = err
		s.Progress = nil
	})
}

// SetPending обновляет счетчик несинхронизированных изменений
func (m *StateMachine) SetPending(pending int) {
	m.apply(func(s *State) {
		s.PendingChanges = pending
	})
}

// Pause переводит машину в состояние paused (внешнее условие)
func (m *StateMachine) Pause() {
	m.apply(func(s *State) {
		s.Status = StatusPaused
		s.Progress = nil
	})
}

// SetOffline переводит машину в состояние offline (нет сети)
func (m *StateMachine) SetOffline() {
	m.apply(func(s *State) {
		s.Status = StatusOffline
		s.Progress = nil
	})
}

// Resume возвращает машину в idle после снятия внешнего условия
func (m *StateMachine) Resume() {
	m.apply(func(s *State) {
		s.Status = StatusIdle
		s.Err = nil
		s.Progress = nil
	})
}

func (m *StateMachine) apply(mutate func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	mutate(&next)
	if next.equal(m.state) {
		return
	}
	m.state = next

	// Рассылка идет под мьютексом: отписка закрывает канал под тем же
	// мьютексом, поэтому отправка в закрытый канал исключена. Отправка
	// неблокирующая, удержание мьютекса не зависит от подписчиков.
	for _, ch := range m.subs {
		select {
		case ch <- next:
		default:
			// Буфер полон: вытесняем самый старый переход
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}
