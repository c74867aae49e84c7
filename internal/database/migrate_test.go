// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_UpDownPairs verifies every .up.sql migration has a matching
// .down.sql. golang-migrate refuses to roll back a version without a down
// file, which turns a bad deploy into a manual recovery.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no migration files found")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_UsersUniqueness verifies the users table keeps UNIQUE keys
// on username and email. The signup duplicate check races with concurrent
// signups; the unique keys are what actually enforce the invariant, so a
// migration must never drop them without replacing them.
func TestMigrations_UsersUniqueness(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	uniquePattern := regexp.MustCompile(`(?i)UNIQUE\s+KEY\s+\S+\s*\((\w+)\)`)
	unique := map[string]bool{}

	for _, f := range ups {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)
		if !strings.Contains(content, "users") {
			continue
		}
		for _, match := range uniquePattern.FindAllStringSubmatch(content, -1) {
			unique[strings.ToLower(match[1])] = true
		}
	}

	for _, col := range []string{"username", "email"} {
		if !unique[col] {
			t.Errorf("users.%s has no UNIQUE KEY in any migration", col)
		}
	}
}

// TestMigrations_ProfileColumnsNullable verifies latitude, longitude and
// avg_power stay nullable. The profile fields are optional by contract;
// a NOT NULL column would break sparse patches that leave a field unset.
func TestMigrations_ProfileColumnsNullable(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	for _, f := range ups {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			trimmed := strings.TrimSpace(strings.ToLower(line))
			for _, col := range []string{"latitude", "longitude", "avg_power"} {
				if strings.HasPrefix(trimmed, col+" ") && strings.Contains(trimmed, "not null") {
					t.Errorf("%s: column %s must be nullable", filepath.Base(f), col)
				}
			}
		}
	}
}
