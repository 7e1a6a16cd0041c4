package library

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a member's password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LibraryManager is a thin façade over the Database and the LendingService,
// keeping CLI and HTTP code simple.
type LibraryManager struct {
	*LendingService
	db *Database
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		LendingService: NewLendingService(db.Books(), db.Members(), opts...),
		db:             db,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// ------------------ Member credentials ------------------

// SetMemberPassword stores a bcrypt hash of password on the member.
func (lm *LibraryManager) SetMemberPassword(memberID, password string) (Result, error) {
	member, ok, err := lm.findMember(memberID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return failure(ReasonMemberNotFound), nil
	}
	if strings.TrimSpace(password) == "" {
		return failure(ReasonInvalidRequest), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}
	member.PasswordHash = string(hash)
	if err := lm.db.Members().Save(member); err != nil {
		return Result{}, fmt.Errorf("save member %s: %w", memberID, err)
	}
	lm.log.Info("member password set", "member_id", memberID)
	return success(), nil
}

// HasPassword reports whether the member must authenticate.
func (lm *LibraryManager) HasPassword(memberID string) (bool, error) {
	member, ok, err := lm.findMember(memberID)
	if err != nil || !ok {
		return false, err
	}
	return member.PasswordHash != "", nil
}

// AuthenticateMember checks password against the stored hash. Members without
// a password always pass; unknown members are left to the lending operation
// to report.
func (lm *LibraryManager) AuthenticateMember(memberID, password string) error {
	member, ok, err := lm.findMember(memberID)
	if err != nil {
		return err
	}
	if !ok || member.PasswordHash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
