// Package auth stores library accounts and turns a username and password
// into a library.Principal.
package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrInvalidUsername    = errors.New("username cannot be empty")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Account is a stored login.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Admin        bool      `json:"admin"`
	PasswordHash string    `json:"-"` // Don't serialize password hash
	CreatedAt    time.Time `json:"created_at"`
}

// Database provides account helpers around a SQLite connection.
type Database struct {
	db *sql.DB

	addAccountStmt *sql.Stmt
	hashCost       int
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

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db, hashCost: bcrypt.DefaultCost}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addAccountStmt != nil {
		d.addAccountStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS accounts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL UNIQUE COLLATE NOCASE,
            password_hash TEXT NOT NULL,
            is_admin BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addAccountStmt, err = d.db.Prepare(`INSERT INTO accounts(username,password_hash,is_admin) VALUES(?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Account helpers
// ---------------------------------------------------------------------------

func (d *Database) hash(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateAccount stores a new account with a bcrypt hash of password.
func (d *Database) CreateAccount(username, password string, admin bool) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, ErrInvalidUsername
	}
	hash, err := d.hash(password)
	if err != nil {
		return 0, err
	}
	res, err := d.addAccountStmt.Exec(username, hash, admin)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: %s", ErrAccountExists, username)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetAccount fetches an account by username (case-insensitive).
func (d *Database) GetAccount(username string) (*Account, error) {
	var a Account
	err := d.db.QueryRow(`SELECT id,username,password_hash,is_admin,created_at FROM accounts WHERE username=?`, strings.TrimSpace(username)).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Admin, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns all accounts without password hashes.
func (d *Database) ListAccounts() ([]*Account, error) {
	rows, err := d.db.Query(`SELECT id,username,is_admin,created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Admin, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// CountAccounts returns how many accounts exist.
func (d *Database) CountAccounts() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

// ResetPassword replaces the stored hash for username.
func (d *Database) ResetPassword(username, password string) error {
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	result, err := d.db.Exec(`UPDATE accounts SET password_hash=? WHERE username=?`, hash, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}
	return nil
}

// VerifyPassword returns the account when password matches its stored hash.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (d *Database) VerifyPassword(username, password string) (*Account, error) {
	a, err := d.GetAccount(username)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}
