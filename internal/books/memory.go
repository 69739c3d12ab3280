package books

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Ordering follows Postgres: NULL dates
// sort last ascending and first descending, ties broken by id.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	books  map[int64]Book
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[int64]Book)}
}

func (m *MemoryStore) Insert(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	b.CreatedAt = time.Now().UTC()
	m.books[b.ID] = cloneBook(*b)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneBook(b)
	return &c, nil
}

func (m *MemoryStore) Update(_ context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.books[b.ID]
	if !ok || cur.OwnerID != b.OwnerID {
		return ErrNotFound
	}
	cur.Title = b.Title
	cur.Author = b.Author
	cur.ReadingStartDate = b.ReadingStartDate
	cur.ReadingEndDate = b.ReadingEndDate
	m.books[b.ID] = cloneBook(cur)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.books[id]
	if !ok || cur.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, ownerID int64, q Query) ([]Book, error) {
	m.mu.RLock()
	var out []Book
	for _, b := range m.books {
		if b.OwnerID == ownerID && q.matches(b) {
			out = append(out, cloneBook(b))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Book) int {
		if q.SortBy != "" {
			if c := compareDates(q.sortKey(a), q.sortKey(b), q.Desc); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (q Query) matches(b Book) bool {
	switch q.Status {
	case StatusNotRead:
		if b.ReadingEndDate != nil {
			return false
		}
	case StatusRead:
		if b.ReadingEndDate == nil {
			return false
		}
	}
	if q.EndDate != nil && (b.ReadingEndDate == nil || !b.ReadingEndDate.Equal(q.EndDate.Time)) {
		return false
	}
	if q.TitleContains != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(q.TitleContains)) {
		return false
	}
	return true
}

func (q Query) sortKey(b Book) *Date {
	if q.SortBy == SortByEndDate {
		return b.ReadingEndDate
	}
	return b.ReadingStartDate
}

func compareDates(a, b *Date, desc bool) int {
	var c int
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		c = 1
	case b == nil:
		c = -1
	default:
		c = a.Compare(b.Time)
	}
	if desc {
		return -c
	}
	return c
}

func cloneBook(b Book) Book {
	if b.ReadingStartDate != nil {
		d := *b.ReadingStartDate
		b.ReadingStartDate = &d
	}
	if b.ReadingEndDate != nil {
		d := *b.ReadingEndDate
		b.ReadingEndDate = &d
	}
	return b
}
