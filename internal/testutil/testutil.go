// Package testutil provides shared helpers for handler tests: an
// in-memory database with the full schema, session helpers, and
// request/response utilities.
package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"mfgops/internal/models"
)

// SetupTestDB creates a standard in-memory SQLite database for testing
// with foreign keys enabled and all tables created.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	// A single connection keeps the :memory: database alive across the
	// pool for the whole test.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	createTables(t, testDB)
	seedAdminUser(t, testDB)

	return testDB
}

func createTables(t *testing.T, db *sql.DB) {
	t.Helper()
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT DEFAULT '',
			role TEXT DEFAULT 'user' CHECK(role IN ('admin','user','worker')),
			active INTEGER DEFAULT 1,
			last_login TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT DEFAULT '',
			summary TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT DEFAULT '',
			read INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			sku TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			product_type TEXT DEFAULT 'finished' CHECK(product_type IN ('finished','component','raw_material')),
			current_stock INTEGER DEFAULT 0 CHECK(current_stock >= 0),
			minimum_stock_level INTEGER DEFAULT 0 CHECK(minimum_stock_level >= 0),
			lead_time_days INTEGER DEFAULT 0 CHECK(lead_time_days >= 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			type TEXT NOT NULL CHECK(type IN ('receive','issue','adjust','scrap')),
			qty INTEGER NOT NULL,
			reference TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS customer_orders (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			order_date TEXT NOT NULL,
			required_date TEXT NOT NULL,
			status TEXT DEFAULT 'pending' CHECK(status IN ('pending','confirmed','in_production','shipped','delivered','cancelled')),
			total_amount REAL DEFAULT 0,
			notes TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS customer_order_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			status TEXT DEFAULT 'pending',
			FOREIGN KEY (customer_order_id) REFERENCES customer_orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS work_centers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			status TEXT DEFAULT 'active' CHECK(status IN ('active','maintenance','inactive')),
			hourly_rate REAL DEFAULT 0 CHECK(hourly_rate >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS production_orders (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL CHECK(quantity > 0),
			start_date TEXT DEFAULT '',
			due_date TEXT DEFAULT '',
			priority TEXT DEFAULT 'medium' CHECK(priority IN ('low','medium','high')),
			status TEXT DEFAULT 'pending' CHECK(status IN ('pending','in_progress','completed','cancelled')),
			customer_order_id TEXT,
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT,
			FOREIGN KEY (customer_order_id) REFERENCES customer_orders(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			production_order_id TEXT NOT NULL,
			work_center_id TEXT NOT NULL,
			description TEXT DEFAULT '',
			start_time TEXT DEFAULT '',
			end_time TEXT DEFAULT '',
			cost REAL DEFAULT 0 CHECK(cost >= 0),
			status TEXT DEFAULT 'pending',
			FOREIGN KEY (production_order_id) REFERENCES production_orders(id) ON DELETE CASCADE,
			FOREIGN KEY (work_center_id) REFERENCES work_centers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			contact_name TEXT DEFAULT '',
			contact_email TEXT DEFAULT '',
			contact_phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			lead_time_days INTEGER DEFAULT 0 CHECK(lead_time_days >= 0),
			status TEXT DEFAULT 'active' CHECK(status IN ('active','preferred','inactive','blocked')),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			status TEXT DEFAULT 'draft' CHECK(status IN ('draft','sent','confirmed','received','cancelled')),
			expected_date TEXT DEFAULT '',
			total REAL DEFAULT 0,
			notes TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			received_at DATETIME,
			FOREIGN KEY (supplier_id) REFERENCES suppliers(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS purchase_order_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			purchase_order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			qty INTEGER NOT NULL CHECK(qty > 0),
			unit_price REAL DEFAULT 0 CHECK(unit_price >= 0),
			FOREIGN KEY (purchase_order_id) REFERENCES purchase_orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS bom_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL,
			component_id TEXT NOT NULL,
			qty_per_unit REAL NOT NULL CHECK(qty_per_unit > 0),
			unit TEXT DEFAULT 'ea',
			UNIQUE(product_id, component_id),
			FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
			FOREIGN KEY (component_id) REFERENCES products(id) ON DELETE RESTRICT
		)`,
		`CREATE TABLE IF NOT EXISTS inspectors (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT DEFAULT '',
			certification TEXT DEFAULT '',
			status TEXT DEFAULT 'active' CHECK(status IN ('active','inactive')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quality_checks (
			id TEXT PRIMARY KEY,
			production_order_id TEXT NOT NULL,
			inspector_id TEXT NOT NULL,
			check_date TEXT NOT NULL,
			result TEXT DEFAULT 'pending' CHECK(result IN ('pending','pass','fail')),
			defects_found INTEGER DEFAULT 0 CHECK(defects_found >= 0),
			notes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (production_order_id) REFERENCES production_orders(id) ON DELETE CASCADE,
			FOREIGN KEY (inspector_id) REFERENCES inspectors(id) ON DELETE RESTRICT
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}
}

func seedAdminUser(t *testing.T, db *sql.DB) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash admin password: %v", err)
	}
	_, err = db.Exec(`INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)`,
		"admin", string(hash), "Administrator", "admin")
	if err != nil {
		t.Fatalf("Failed to create default admin user: %v", err)
	}
}

// CreateTestSession creates a session token for the given user with a
// 24h expiry.
func CreateTestSession(t *testing.T, db *sql.DB, userID int) string {
	t.Helper()
	token := "test-session-token-" + time.Now().Format("20060102150405.000000")
	expiresAt := time.Now().Add(24 * time.Hour)

	_, err := db.Exec(
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return token
}

// LoginAdmin returns a session token for the default admin user.
func LoginAdmin(t *testing.T, db *sql.DB) string {
	t.Helper()
	var adminID int
	if err := db.QueryRow("SELECT id FROM users WHERE username = 'admin'").Scan(&adminID); err != nil {
		t.Fatalf("Failed to find admin user: %v", err)
	}
	return CreateTestSession(t, db, adminID)
}

// AuthedRequest creates an HTTP request carrying a session cookie.
func AuthedRequest(method, path string, body []byte, sessionToken string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: "mfgops_session", Value: sessionToken})
	}
	return req
}

// AuthedJSONRequest creates an authenticated HTTP request with a JSON body.
func AuthedJSONRequest(method, path string, body interface{}, sessionToken string) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := AuthedRequest(method, path, bodyBytes, sessionToken)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}

// SeedProduct inserts a product row with the given stock levels.
func SeedProduct(t *testing.T, db *sql.DB, id, sku, name, productType string, stock, minStock int, unitPrice float64) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO products (id,sku,name,product_type,current_stock,minimum_stock_level,unit_price) VALUES (?,?,?,?,?,?,?)`,
		id, sku, name, productType, stock, minStock, unitPrice)
	if err != nil {
		t.Fatalf("Failed to seed product %s: %v", id, err)
	}
}

// SeedCustomer inserts a customer row.
func SeedCustomer(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO customers (id,name) VALUES (?,?)`, id, name); err != nil {
		t.Fatalf("Failed to seed customer %s: %v", id, err)
	}
}

// SeedWorkCenter inserts a work-center row.
func SeedWorkCenter(t *testing.T, db *sql.DB, id, name, status string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO work_centers (id,name,status) VALUES (?,?,?)`, id, name, status); err != nil {
		t.Fatalf("Failed to seed work center %s: %v", id, err)
	}
}

// SeedSupplier inserts a supplier row.
func SeedSupplier(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO suppliers (id,name) VALUES (?,?)`, id, name); err != nil {
		t.Fatalf("Failed to seed supplier %s: %v", id, err)
	}
}

// SeedInspector inserts an inspector row.
func SeedInspector(t *testing.T, db *sql.DB, id, name, status string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO inspectors (id,name,status) VALUES (?,?,?)`, id, name, status); err != nil {
		t.Fatalf("Failed to seed inspector %s: %v", id, err)
	}
}

// SeedProductionOrder inserts a production-order row.
func SeedProductionOrder(t *testing.T, db *sql.DB, id, productID string, qty int, status, dueDate string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO production_orders (id,product_id,quantity,status,due_date) VALUES (?,?,?,?,?)`,
		id, productID, qty, status, dueDate)
	if err != nil {
		t.Fatalf("Failed to seed production order %s: %v", id, err)
	}
}
