package db

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestIsBusyError(t *testing.T) {
	if IsBusyError(nil) {
		t.Error("nil is not busy")
	}
	if IsBusyError(errors.New("syntax error")) {
		t.Error("syntax errors are not busy")
	}
	if !IsBusyError(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("locked message should match")
	}
	if !IsBusyError(errors.New("database table is locked")) {
		t.Error("table-locked message should match")
	}
}

func TestExecWithRetryPassesThrough(t *testing.T) {
	sqlDB, err := Open(filepath.Join(t.TempDir(), "retry.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	if _, err := ExecWithRetry(sqlDB, `CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ExecWithRetry(sqlDB, `INSERT INTO t (v) VALUES (?)`, "x"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var n int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("count = %d, err = %v", n, err)
	}

	if _, err := ExecWithRetry(sqlDB, `NOT VALID SQL`); err == nil {
		t.Error("invalid SQL should fail without retry")
	}
}
