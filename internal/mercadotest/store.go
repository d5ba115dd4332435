package mercadotest

import (
	"sort"
	"sync"
)

// MissingID is never assigned so suites can use it for not-found cases.
const MissingID = 777

// Product kinds under /produtos/hortifruit.
const (
	KindFrutas  = "frutas"
	KindLegumes = "legumes"
)

type Market struct {
	ID       int    `json:"id"`
	Nome     string `json:"nome"`
	Endereco string `json:"endereco"`
	CNPJ     string `json:"cnpj"`
}

type Item struct {
	ID    int     `json:"id"`
	Nome  string  `json:"nome"`
	Valor float64 `json:"valor"`
}

type market struct {
	Market
	items map[string][]Item // kind -> items in insertion order
}

// Store holds the double's state in memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int
	markets map[int]*market
}

func NewStore() *Store {
	return &Store{markets: make(map[int]*market)}
}

func (s *Store) newID() int {
	s.nextID++
	if s.nextID == MissingID {
		s.nextID++
	}
	return s.nextID
}

// Markets returns every market ordered by id.
func (s *Store) Markets() []Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m.Market)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateMarket(in Market) Market {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.newID()
	s.markets[in.ID] = &market{Market: in, items: map[string][]Item{}}
	return in
}

func (s *Store) Market(id int) (Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return Market{}, false
	}
	return m.Market, true
}

func (s *Store) UpdateMarket(id int, in Market) (Market, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return Market{}, false
	}
	in.ID = id
	m.Market = in
	return in, true
}

func (s *Store) DeleteMarket(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[id]; !ok {
		return false
	}
	delete(s.markets, id)
	return true
}

// Items lists a market's products of one kind. ok is false for an unknown market.
func (s *Store) Items(marketID int, kind string) ([]Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[marketID]
	if !ok {
		return nil, false
	}
	return append([]Item{}, m.items[kind]...), true
}

func (s *Store) AddItem(marketID int, kind string, in Item) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return Item{}, false
	}
	in.ID = s.newID()
	m.items[kind] = append(m.items[kind], in)
	return in, true
}

func (s *Store) DeleteItem(marketID int, kind string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[marketID]
	if !ok {
		return false
	}
	items := m.items[kind]
	for i, it := range items {
		if it.ID == id {
			m.items[kind] = append(items[:i:i], items[i+1:]...)
			return true
		}
	}
	return false
}
