package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"mfgops/internal/models"
	"mfgops/internal/testutil"
	"mfgops/internal/websocket"
)

func TestDashboardCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Low", "finished", 2, 10, 1)
	testutil.SeedProduct(t, db, "P-2025-0002", "SKU-2", "Fine", "finished", 50, 10, 1)
	testutil.SeedCustomer(t, db, "CUST-001", "Acme")
	testutil.SeedWorkCenter(t, db, "WC-001", "Line A", "active")
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 5, "pending", "2020-01-01")
	db.Exec(`INSERT INTO customer_orders (id,customer_id,order_date,required_date,status,total_amount)
		VALUES ('CO-2025-0001','CUST-001','2025-01-01','2025-02-01','pending',150)`)
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	w := httptest.NewRecorder()
	h.Dashboard(w, testutil.AuthedRequest("GET", "/api/v1/dashboard", nil, ""))
	testutil.AssertStatus(t, w, 200)

	var d models.DashboardData
	testutil.DecodeEnvelope(t, w, &d)
	if d.Products != 2 {
		t.Errorf("products = %d, want 2", d.Products)
	}
	if d.LowStockProducts != 1 {
		t.Errorf("low stock = %d, want 1", d.LowStockProducts)
	}
	if d.OpenCustomerOrders != 1 {
		t.Errorf("open customer orders = %d, want 1", d.OpenCustomerOrders)
	}
	if d.OpenOrderValue != 150 {
		t.Errorf("open order value = %v, want 150", d.OpenOrderValue)
	}
	if d.OverdueProductionCount != 1 {
		t.Errorf("overdue production = %d, want 1", d.OverdueProductionCount)
	}
	if d.ActiveWorkCenters != 1 {
		t.Errorf("active work centers = %d, want 1", d.ActiveWorkCenters)
	}
}

func TestGenerateNotificationsDedupesUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Low", "finished", 2, 10, 1)
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	if created := h.Generate(); created != 1 {
		t.Fatalf("first sweep created %d, want 1", created)
	}
	// Unread notification for the same condition suppresses a duplicate.
	if created := h.Generate(); created != 0 {
		t.Errorf("second sweep created %d, want 0", created)
	}

	// Once read, the next sweep raises it again.
	db.Exec("UPDATE notifications SET read=1")
	if created := h.Generate(); created != 1 {
		t.Errorf("sweep after read created %d, want 1", created)
	}
}

func TestGenerateNotificationsOverdueProduction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 100, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 5, "in_progress", "2020-01-01")
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	if created := h.Generate(); created != 1 {
		t.Fatalf("sweep created %d, want 1", created)
	}
	var ntype string
	db.QueryRow("SELECT type FROM notifications").Scan(&ntype)
	if ntype != "overdue_production" {
		t.Errorf("type = %q, want overdue_production", ntype)
	}
}

func TestGenerateNotificationsIgnoresBlankDueDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 100, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 5, "pending", "")
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	if created := h.Generate(); created != 0 {
		t.Errorf("sweep created %d, want 0 for blank due date", created)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM notifications").Scan(&count)
	if count != 0 {
		t.Errorf("notifications = %d, want 0", count)
	}
}

func TestDashboardIgnoresBlankDueDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 100, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 5, "pending", "")
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	w := httptest.NewRecorder()
	h.Dashboard(w, testutil.AuthedRequest("GET", "/api/v1/dashboard", nil, ""))
	testutil.AssertStatus(t, w, 200)

	var d models.DashboardData
	testutil.DecodeEnvelope(t, w, &d)
	if d.OverdueProductionCount != 0 {
		t.Errorf("overdue production = %d, want 0 for blank due date", d.OverdueProductionCount)
	}
}

func TestNotificationBroadcastCarriesRowID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hub := websocket.NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	h := &Handler{DB: db, Hub: hub}
	if !h.insertNotification("low_stock", "Low stock: P-2025-0001", "at 2, below minimum 10") {
		t.Fatal("insert failed")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var evt websocket.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Type != "notification_created" {
		t.Errorf("event type = %q, want notification_created", evt.Type)
	}
	id, ok := evt.ID.(float64)
	if !ok || id != 1 {
		t.Errorf("event id = %v, want row id 1", evt.ID)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.Exec("INSERT INTO notifications (type,title,message) VALUES ('low_stock','Low stock: P-1','')")
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	w := httptest.NewRecorder()
	h.MarkNotificationRead(w, testutil.AuthedRequest("PUT", "/x", nil, ""), "1")
	testutil.AssertStatus(t, w, 200)

	var read int
	db.QueryRow("SELECT read FROM notifications WHERE id=1").Scan(&read)
	if read != 1 {
		t.Errorf("read = %d, want 1", read)
	}

	w = httptest.NewRecorder()
	h.MarkNotificationRead(w, testutil.AuthedRequest("PUT", "/x", nil, ""), "999")
	testutil.AssertStatus(t, w, 404)
}

func TestCreateUserValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := &Handler{DB: db, Hub: websocket.NewHub()}

	// Short password rejected.
	w := httptest.NewRecorder()
	h.CreateUser(w, testutil.AuthedJSONRequest("POST", "/x",
		map[string]string{"username": "worker1", "password": "short"}, ""))
	testutil.AssertStatus(t, w, 400)

	w = httptest.NewRecorder()
	h.CreateUser(w, testutil.AuthedJSONRequest("POST", "/x",
		map[string]string{"username": "worker1", "password": "longenough", "role": "worker"}, ""))
	testutil.AssertStatus(t, w, 200)

	// Duplicate username conflicts.
	w = httptest.NewRecorder()
	h.CreateUser(w, testutil.AuthedJSONRequest("POST", "/x",
		map[string]string{"username": "worker1", "password": "longenough"}, ""))
	testutil.AssertStatus(t, w, 409)
}
