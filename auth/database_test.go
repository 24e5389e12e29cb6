package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "accounts", "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	db.hashCost = bcrypt.MinCost
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndVerify(t *testing.T) {
	db := tempDB(t)
	id, err := db.CreateAccount("alice", "s3cret", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id < 1 {
		t.Fatalf("want positive id, got %d", id)
	}

	acct, err := db.VerifyPassword("ALICE", "s3cret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if acct.Username != "alice" || !acct.Admin {
		t.Fatalf("unexpected account %+v", acct)
	}
	if acct.PasswordHash == "s3cret" {
		t.Fatal("password stored in clear text")
	}
}

func TestVerifyRejects(t *testing.T) {
	db := tempDB(t)
	if _, err := db.CreateAccount("alice", "s3cret", false); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := db.VerifyPassword("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := db.VerifyPassword("bob", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	db := tempDB(t)
	if _, err := db.CreateAccount("  ", "pw", false); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("blank username: got %v", err)
	}
	if _, err := db.CreateAccount("alice", " ", false); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("blank password: got %v", err)
	}
	if _, err := db.CreateAccount("alice", "pw", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.CreateAccount("Alice", "other", true); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate username: want ErrAccountExists, got %v", err)
	}
}

func TestListAndCountAccounts(t *testing.T) {
	db := tempDB(t)
	n, err := db.CountAccounts()
	if err != nil || n != 0 {
		t.Fatalf("empty count: n=%d err=%v", n, err)
	}

	for _, name := range []string{"admin", "reader", "guest"} {
		if _, err := db.CreateAccount(name, "pw-"+name, name == "admin"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	accounts, err := db.ListAccounts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("want 3 accounts, got %d", len(accounts))
	}
	if accounts[0].Username != "admin" || !accounts[0].Admin || accounts[1].Admin {
		t.Fatalf("unexpected listing %+v %+v", accounts[0], accounts[1])
	}
	for _, a := range accounts {
		if a.PasswordHash != "" {
			t.Fatalf("list leaked hash for %s", a.Username)
		}
		if a.CreatedAt.IsZero() {
			t.Fatalf("missing created_at for %s", a.Username)
		}
	}
	if n, _ := db.CountAccounts(); n != 3 {
		t.Fatalf("want count 3, got %d", n)
	}
}

func TestResetPassword(t *testing.T) {
	db := tempDB(t)
	if _, err := db.CreateAccount("alice", "old", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.ResetPassword("alice", "new"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := db.VerifyPassword("alice", "old"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := db.VerifyPassword("alice", "new"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if err := db.ResetPassword("nobody", "pw"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown user: want ErrAccountNotFound, got %v", err)
	}
}

func TestReopenKeepsAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.hashCost = bcrypt.MinCost
	if _, err := db.CreateAccount("alice", "pw", true); err != nil {
		t.Fatalf("create: %v", err)
	}
	db.Close()

	// Migrations must be a no-op the second time.
	db, err = NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := db.VerifyPassword("alice", "pw"); err != nil {
		t.Fatalf("verify after reopen: %v", err)
	}
}
