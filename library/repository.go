package library

import "errors"

// ErrNotFound is returned by repositories when no record has the requested id.
var ErrNotFound = errors.New("not found")

// BookRepository stores books together with their reservation queues.
type BookRepository interface {
	FindByID(id string) (*Book, error)
	FindAll() ([]*Book, error)
	Save(b *Book) error
	Delete(b *Book) error
}

// MemberRepository stores members.
type MemberRepository interface {
	FindByID(id string) (*Member, error)
	FindAll() ([]*Member, error)
	Save(m *Member) error
	Delete(m *Member) error
}
