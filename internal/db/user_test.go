package db

import (
	"errors"
	"fmt"
	"testing"
)

func openTestDB(t *testing.T) func() {
	t.Helper()

	gdb, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	DB = gdb

	return func() {
		sqlDB, err := DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestEnsureUserAndAuthenticate(t *testing.T) {
	cleanup := openTestDB(t)
	defer cleanup()

	if err := EnsureUser(DB, " admin ", "s3cret"); err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	// 重复调用不会创建第二个账号
	if err := EnsureUser(DB, "admin", "other"); err != nil {
		t.Fatalf("second EnsureUser returned error: %v", err)
	}

	var count int64
	DB.Model(&User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 user, got %d", count)
	}

	user, err := Authenticate(DB, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.Username != "admin" {
		t.Fatalf("unexpected username %q", user.Username)
	}

	if _, err := Authenticate(DB, "admin", "other"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := Authenticate(DB, "ghost", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestEnsureUserSkipsBlankInput(t *testing.T) {
	if err := EnsureUser(nil, "", "pw"); err != nil {
		t.Fatalf("expected nil for blank username, got %v", err)
	}
	if err := EnsureUser(nil, "admin", "pw"); err == nil {
		t.Fatal("expected error when database is nil")
	}
}
