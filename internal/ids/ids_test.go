package ids

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE customer_orders (id TEXT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestNextStartsAtOne(t *testing.T) {
	db := openDB(t)
	year := time.Now().Format("2006")

	got := Next(db, "CO", "customer_orders", 4)
	want := fmt.Sprintf("CO-%s-0001", year)
	if got != want {
		t.Errorf("Next = %q, want %q", got, want)
	}
}

func TestNextIncrementsFromMax(t *testing.T) {
	db := openDB(t)
	year := time.Now().Format("2006")

	for i := 1; i <= 3; i++ {
		id := Next(db, "CO", "customer_orders", 4)
		want := fmt.Sprintf("CO-%s-%04d", year, i)
		if id != want {
			t.Fatalf("allocation %d = %q, want %q", i, id, want)
		}
		if _, err := db.Exec("INSERT INTO customer_orders (id) VALUES (?)", id); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestNextScopedToYear(t *testing.T) {
	db := openDB(t)
	year := time.Now().Format("2006")

	// A prior-year id must not influence the current year's sequence.
	db.Exec("INSERT INTO customer_orders (id) VALUES ('CO-2019-0042')")

	got := Next(db, "CO", "customer_orders", 4)
	want := fmt.Sprintf("CO-%s-0001", year)
	if got != want {
		t.Errorf("Next = %q, want %q", got, want)
	}
}

func TestNextSkipsMalformedIDs(t *testing.T) {
	db := openDB(t)
	year := time.Now().Format("2006")

	db.Exec("INSERT INTO customer_orders (id) VALUES (?)", "CO-"+year+"-zzzz")

	got := Next(db, "CO", "customer_orders", 4)
	want := fmt.Sprintf("CO-%s-0001", year)
	if got != want {
		t.Errorf("Next = %q, want %q", got, want)
	}
}

func TestNextSimple(t *testing.T) {
	db := openDB(t)
	db.Exec("CREATE TABLE suppliers (id TEXT PRIMARY KEY)")
	db.Exec("INSERT INTO suppliers (id) VALUES ('SUP-007')")

	got := NextSimple(db, "SUP", "suppliers", 3)
	if got != "SUP-008" {
		t.Errorf("NextSimple = %q, want SUP-008", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := openDB(t)
	db.Exec("INSERT INTO customer_orders (id) VALUES ('CO-2025-0001')")
	_, err := db.Exec("INSERT INTO customer_orders (id) VALUES ('CO-2025-0001')")
	if err == nil {
		t.Fatal("expected uniqueness error")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
	if IsUniqueViolation(nil) {
		t.Error("IsUniqueViolation(nil) = true, want false")
	}
	if IsUniqueViolation(errors.New("disk I/O error")) {
		t.Error("IsUniqueViolation(unrelated) = true, want false")
	}
}
