package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database provides the SQLite-backed book and member repositories.
type Database struct {
	db *sqlx.DB

	upsertBookStmt   *sqlx.Stmt
	upsertMemberStmt *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.upsertBookStmt != nil {
		d.upsertBookStmt.Close()
	}
	if d.upsertMemberStmt != nil {
		d.upsertMemberStmt.Close()
	}
	return d.db.Close()
}

// Books returns the SQLite BookRepository.
func (d *Database) Books() BookRepository { return sqlBooks{d} }

// Members returns the SQLite MemberRepository.
func (d *Database) Members() MemberRepository { return sqlMembers{d} }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS members (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            password_hash TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            loaned_to TEXT REFERENCES members(id),
            due_date TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_books_loaned_to ON books(loaned_to);`,
		`CREATE TABLE IF NOT EXISTS book_reservations (
            book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
            member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            PRIMARY KEY (book_id, member_id)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.upsertBookStmt, err = d.db.Preparex(`INSERT INTO books(id,title,loaned_to,due_date) VALUES(?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET title=excluded.title, loaned_to=excluded.loaned_to, due_date=excluded.due_date`); err != nil {
		return err
	}
	if d.upsertMemberStmt, err = d.db.Preparex(`INSERT INTO members(id,name,password_hash) VALUES(?,?,?)
        ON CONFLICT(id) DO UPDATE SET name=excluded.name, password_hash=excluded.password_hash`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

type bookRow struct {
	ID       string         `db:"id"`
	Title    string         `db:"title"`
	LoanedTo sql.NullString `db:"loaned_to"`
	DueDate  sql.NullString `db:"due_date"`
}

type reservationRow struct {
	BookID   string `db:"book_id"`
	MemberID string `db:"member_id"`
}

func (r bookRow) toBook() (*Book, error) {
	b := &Book{ID: r.ID, Title: r.Title, LoanedTo: r.LoanedTo.String, ReservationQueue: []string{}}
	if r.DueDate.Valid {
		due, err := time.Parse(time.DateOnly, r.DueDate.String)
		if err != nil {
			return nil, fmt.Errorf("book %s: parse due date %q: %w", r.ID, r.DueDate.String, err)
		}
		b.DueDate = &due
	}
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func dueDateColumn(b *Book) sql.NullString {
	if b.DueDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: b.DueDate.Format(time.DateOnly), Valid: true}
}

type sqlBooks struct{ d *Database }

func (r sqlBooks) FindByID(id string) (*Book, error) {
	var row bookRow
	err := r.d.db.Get(&row, `SELECT id,title,loaned_to,due_date FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b, err := row.toBook()
	if err != nil {
		return nil, err
	}
	if err := r.d.db.Select(&b.ReservationQueue,
		`SELECT member_id FROM book_reservations WHERE book_id=? ORDER BY position`, id); err != nil {
		return nil, err
	}
	return b, nil
}

// FindAll returns every book ordered by id, queues included.
func (r sqlBooks) FindAll() ([]*Book, error) {
	var rows []bookRow
	if err := r.d.db.Select(&rows, `SELECT id,title,loaned_to,due_date FROM books ORDER BY id`); err != nil {
		return nil, err
	}
	books := make([]*Book, 0, len(rows))
	byID := make(map[string]*Book, len(rows))
	for _, row := range rows {
		b, err := row.toBook()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
		byID[b.ID] = b
	}

	var queued []reservationRow
	if err := r.d.db.Select(&queued,
		`SELECT book_id, member_id FROM book_reservations ORDER BY book_id, position`); err != nil {
		return nil, err
	}
	for _, q := range queued {
		if b, ok := byID[q.BookID]; ok {
			b.ReservationQueue = append(b.ReservationQueue, q.MemberID)
		}
	}
	return books, nil
}

// Save upserts the book and rewrites its reservation queue in one transaction.
func (r sqlBooks) Save(b *Book) error {
	tx, err := r.d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Stmtx(r.d.upsertBookStmt).Exec(b.ID, b.Title, nullString(b.LoanedTo), dueDateColumn(b)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM book_reservations WHERE book_id=?`, b.ID); err != nil {
		return err
	}
	for pos, memberID := range b.ReservationQueue {
		if _, err := tx.Exec(`INSERT INTO book_reservations(book_id,member_id,position) VALUES(?,?,?)`,
			b.ID, memberID, pos); err != nil {
			return fmt.Errorf("queue %s for book %s: %w", memberID, b.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes the book; its reservations cascade.
func (r sqlBooks) Delete(b *Book) error {
	_, err := r.d.db.Exec(`DELETE FROM books WHERE id=?`, b.ID)
	return err
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

type sqlMembers struct{ d *Database }

func (r sqlMembers) FindByID(id string) (*Member, error) {
	var m Member
	err := r.d.db.QueryRowx(`SELECT id,name,password_hash FROM members WHERE id=?`, id).
		Scan(&m.ID, &m.Name, &m.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAll returns all members ordered by id.
func (r sqlMembers) FindAll() ([]*Member, error) {
	rows, err := r.d.db.Queryx(`SELECT id,name,password_hash FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.PasswordHash); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (r sqlMembers) Save(m *Member) error {
	_, err := r.d.upsertMemberStmt.Exec(m.ID, m.Name, m.PasswordHash)
	return err
}

// Delete removes the member together with any queue entries that still name it.
func (r sqlMembers) Delete(m *Member) error {
	_, err := r.d.db.Exec(`DELETE FROM members WHERE id=?`, m.ID)
	return err
}
