package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"drawtrack/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors GormStore semantics
// (ID monotonicity, cascade delete, batch atomicity) for tests.
type MemoryStore struct {
	mu         sync.RWMutex
	games      map[int64]domain.Game
	results    map[int64]domain.Result
	users      map[int64]domain.User
	otps       map[string]domain.OTPToken // key: email
	nextGame   int64
	nextResult int64
	nextUser   int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[int64]domain.Game),
		results: make(map[int64]domain.Result),
		users:   make(map[int64]domain.User),
		otps:    make(map[string]domain.OTPToken),
	}
}

// ── games ──

func (m *MemoryStore) ListGames() ([]domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedGamesLocked(), nil
}

func (m *MemoryStore) sortedGamesLocked() []domain.Game {
	games := make([]domain.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].OrderIndex != games[j].OrderIndex {
			return games[i].OrderIndex < games[j].OrderIndex
		}
		return games[i].Name < games[j].Name
	})
	return games
}

func (m *MemoryStore) GetGameByCode(code string) (domain.Game, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.gameByCodeLocked(code)
	return g, ok, nil
}

func (m *MemoryStore) gameByCodeLocked(code string) (domain.Game, bool) {
	for _, g := range m.games {
		if g.Code == code {
			return g, true
		}
	}
	return domain.Game{}, false
}

func (m *MemoryStore) CreateGame(g domain.Game) (domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.gameByCodeLocked(g.Code); exists {
		return domain.Game{}, ErrDuplicate
	}
	m.nextGame++
	g.ID = m.nextGame
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	m.games[g.ID] = g
	return g, nil
}

func (m *MemoryStore) UpdateGame(oldCode string, g domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.gameByCodeLocked(oldCode)
	if !ok {
		return nil
	}
	if g.Code != oldCode {
		if _, taken := m.gameByCodeLocked(g.Code); taken {
			return ErrDuplicate
		}
	}
	cur.Name = g.Name
	cur.Code = g.Code
	cur.DefaultTime = g.DefaultTime
	cur.OrderIndex = g.OrderIndex
	cur.UpdatedAt = time.Now().UTC()
	m.games[cur.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteGameByCode(code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gameByCodeLocked(code)
	if !ok {
		return false, nil
	}
	delete(m.games, g.ID)
	for id, r := range m.results {
		if r.GameID == g.ID {
			delete(m.results, id)
		}
	}
	return true, nil
}

func (m *MemoryStore) UpsertGames(items []domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Stage on a copy so a mid-batch failure leaves nothing behind.
	staged := make(map[int64]domain.Game, len(m.games))
	for id, g := range m.games {
		staged[id] = g
	}
	next := m.nextGame
	now := time.Now().UTC()
	for _, item := range items {
		var cur *domain.Game
		for id := range staged {
			g := staged[id]
			if g.Code == item.Code {
				cur = &g
				break
			}
		}
		if cur != nil {
			cur.Name = item.Name
			cur.DefaultTime = item.DefaultTime
			cur.OrderIndex = item.OrderIndex
			cur.UpdatedAt = now
			staged[cur.ID] = *cur
			continue
		}
		next++
		item.ID = next
		item.CreatedAt = now
		item.UpdatedAt = now
		staged[item.ID] = item
	}
	m.games = staged
	m.nextGame = next
	return nil
}

// ── results ──

func (m *MemoryStore) AppendResult(r domain.Result) (domain.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextResult++
	r.ID = m.nextResult
	r.CreatedAt = time.Now().UTC()
	m.results[r.ID] = r
	return r, nil
}

func (m *MemoryStore) DeleteResultByID(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[id]; !ok {
		return false, nil
	}
	delete(m.results, id)
	return true, nil
}

func (m *MemoryStore) ListResultsForDate(dateStr string) ([]ResultRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]ResultRow, 0)
	for _, r := range m.results {
		if r.DateStr != dateStr {
			continue
		}
		g, ok := m.games[r.GameID]
		if !ok {
			continue
		}
		rows = append(rows, ResultRow{Result: r, Code: g.Code})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SlotMin != rows[j].SlotMin {
			return rows[i].SlotMin < rows[j].SlotMin
		}
		gi, gj := m.games[rows[i].GameID], m.games[rows[j].GameID]
		if gi.OrderIndex != gj.OrderIndex {
			return gi.OrderIndex < gj.OrderIndex
		}
		if gi.Name != gj.Name {
			return gi.Name < gj.Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (m *MemoryStore) SnapshotValues(dateStr string, slotMax int) ([]CodeValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := make(map[int64]domain.Result) // game id -> highest-id row
	for _, r := range m.results {
		if r.DateStr != dateStr || r.SlotMin > slotMax {
			continue
		}
		if cur, ok := latest[r.GameID]; !ok || r.ID > cur.ID {
			latest[r.GameID] = r
		}
	}
	out := make([]CodeValue, 0, len(latest))
	for gameID, r := range latest {
		g, ok := m.games[gameID]
		if !ok {
			continue
		}
		out = append(out, CodeValue{Code: g.Code, Value: r.Value})
	}
	return out, nil
}

func (m *MemoryStore) MonthlyFinals(year, month int) ([]DateCodeValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	type key struct {
		date   string
		gameID int64
	}
	finals := make(map[key]domain.Result)
	for _, r := range m.results {
		if !strings.HasPrefix(r.DateStr, prefix) {
			continue
		}
		k := key{date: r.DateStr, gameID: r.GameID}
		if cur, ok := finals[k]; !ok || r.ID > cur.ID {
			finals[k] = r
		}
	}
	out := make([]DateCodeValue, 0, len(finals))
	for k, r := range finals {
		g, ok := m.games[k.gameID]
		if !ok {
			continue
		}
		out = append(out, DateCodeValue{DateStr: k.date, Code: g.Code, Value: r.Value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateStr != out[j].DateStr {
			return out[i].DateStr < out[j].DateStr
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// ── users ──

func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.User{}, ErrDuplicate
		}
	}
	m.nextUser++
	u.ID = m.nextUser
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = u
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) UserCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

// ── otp tokens ──

func (m *MemoryStore) UpsertOTPToken(t domain.OTPToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[t.Email] = t
	return nil
}

func (m *MemoryStore) DeleteExpiredOTPTokens(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for email, t := range m.otps {
		if !t.ExpiresAt.After(now) {
			delete(m.otps, email)
			deleted++
		}
	}
	return deleted, nil
}

// ── health and lifecycle ──

func (m *MemoryStore) Health(context.Context) (HealthInfo, error) {
	return HealthInfo{
		Database: "memory",
		Tables:   []string{"games", "otp_tokens", "timewise_results", "users"},
	}, nil
}

func (m *MemoryStore) Close() error { return nil }
