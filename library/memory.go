package library

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore keeps books and members in process memory. Records are copied
// on the way in and out, so callers only observe what they explicitly Save.
type MemoryStore struct {
	mu      sync.RWMutex
	books   map[string]*Book
	members map[string]*Member
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:   make(map[string]*Book),
		members: make(map[string]*Member),
	}
}

// Books returns the store's BookRepository.
func (s *MemoryStore) Books() BookRepository { return memoryBooks{s} }

// Members returns the store's MemberRepository.
func (s *MemoryStore) Members() MemberRepository { return memoryMembers{s} }

type memoryBooks struct{ s *MemoryStore }

func (r memoryBooks) FindByID(id string) (*Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return b.clone(), nil
}

func (r memoryBooks) FindAll() ([]*Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	books := make([]*Book, 0, len(r.s.books))
	for _, b := range r.s.books {
		books = append(books, b.clone())
	}
	slices.SortFunc(books, func(a, b *Book) int { return cmp.Compare(a.ID, b.ID) })
	return books, nil
}

func (r memoryBooks) Save(b *Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.books[b.ID] = b.clone()
	return nil
}

func (r memoryBooks) Delete(b *Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.books, b.ID)
	return nil
}

type memoryMembers struct{ s *MemoryStore }

func (r memoryMembers) FindByID(id string) (*Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return m.clone(), nil
}

func (r memoryMembers) FindAll() ([]*Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	members := make([]*Member, 0, len(r.s.members))
	for _, m := range r.s.members {
		members = append(members, m.clone())
	}
	slices.SortFunc(members, func(a, b *Member) int { return cmp.Compare(a.ID, b.ID) })
	return members, nil
}

func (r memoryMembers) Save(m *Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.members[m.ID] = m.clone()
	return nil
}

func (r memoryMembers) Delete(m *Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.members, m.ID)
	return nil
}
