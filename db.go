package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"mfgops/internal/ids"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Some drivers don't parse connection string params correctly
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
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
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_order_lines_order ON customer_order_lines(customer_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_production_orders_co ON production_orders(customer_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_po ON operations(production_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_inv_tx_product ON inventory_transactions(product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quality_checks_po ON quality_checks(production_order_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index migration: %w", err)
		}
	}
	return nil
}

// seedDB inserts the default admin user and a small demo dataset on first run.
func seedDB() {
	var count int
	db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if count == 0 {
		hash, _ := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?,?,?,?)",
			"admin", string(hash), "Administrator", "admin")
	}

	db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count)
	if count > 0 {
		return
	}

	year := time.Now().Format("2006")

	db.Exec(`INSERT INTO products (id,sku,name,description,product_type,current_stock,minimum_stock_level,lead_time_days,unit_price) VALUES (?,?,?,?,?,?,?,?,?)`,
		"P-"+year+"-0001", "WID-100", "Widget 100", "Standard widget", "finished", 120, 25, 7, 49.90)
	db.Exec(`INSERT INTO products (id,sku,name,description,product_type,current_stock,minimum_stock_level,lead_time_days,unit_price) VALUES (?,?,?,?,?,?,?,?,?)`,
		"P-"+year+"-0002", "WID-200", "Widget 200 Pro", "Heavy-duty widget", "finished", 40, 15, 14, 129.00)
	db.Exec(`INSERT INTO products (id,sku,name,description,product_type,current_stock,minimum_stock_level,lead_time_days,unit_price) VALUES (?,?,?,?,?,?,?,?,?)`,
		"P-"+year+"-0003", "ALU-SHT", "Aluminium Sheet 2mm", "Raw stock", "raw_material", 500, 100, 21, 8.75)

	db.Exec(`INSERT INTO customers (id,name,email,phone) VALUES (?,?,?,?)`,
		"CUST-001", "Acme Corp", "orders@acme.example", "+1 555 0100")
	db.Exec(`INSERT INTO customers (id,name,email,phone) VALUES (?,?,?,?)`,
		"CUST-002", "TechStart Inc", "purchasing@techstart.example", "+1 555 0101")

	db.Exec(`INSERT INTO suppliers (id,name,contact_email,lead_time_days,status) VALUES (?,?,?,?,?)`,
		"SUP-001", "MetalWorks Ltd", "sales@metalworks.example", 10, "preferred")

	db.Exec(`INSERT INTO work_centers (id,name,description,status,hourly_rate) VALUES (?,?,?,?,?)`,
		"WC-001", "Assembly Line A", "Primary assembly line", "active", 85.0)
	db.Exec(`INSERT INTO work_centers (id,name,description,status,hourly_rate) VALUES (?,?,?,?,?)`,
		"WC-002", "CNC Station", "3-axis milling", "active", 120.0)

	db.Exec(`INSERT INTO inspectors (id,name,email,certification) VALUES (?,?,?,?)`,
		"INSP-001", "J. Rivera", "j.rivera@example.com", "ISO 9001 Lead Auditor")

	db.Exec(`INSERT INTO bom_lines (product_id,component_id,qty_per_unit,unit) VALUES (?,?,?,?)`,
		"P-"+year+"-0001", "P-"+year+"-0003", 0.5, "sheet")
}

// ID generation helpers (see internal/ids for allocation semantics).
func nextID(prefix string, table string, digits int) string {
	return ids.Next(db, prefix, table, digits)
}

func nextSimpleID(prefix string, table string, digits int) string {
	return ids.NextSimple(db, prefix, table, digits)
}

func ns(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func sp(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
