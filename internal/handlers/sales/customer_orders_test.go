package sales

import (
	"database/sql"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mfgops/internal/ids"
	"mfgops/internal/testutil"
	"mfgops/internal/websocket"
)

func newHandler(db *sql.DB) *Handler {
	return &Handler{
		DB:  db,
		Hub: websocket.NewHub(),
		NextID: func(prefix, table string, digits int) string {
			return ids.Next(db, prefix, table, digits)
		},
		NextSimpleID: func(prefix, table string, digits int) string {
			return ids.NextSimple(db, prefix, table, digits)
		},
	}
}

func seedOrderFixtures(t *testing.T, db *sql.DB) {
	t.Helper()
	testutil.SeedCustomer(t, db, "CUST-001", "Acme Corp")
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 100, 10, 10)
	testutil.SeedProduct(t, db, "P-2025-0002", "SKU-2", "Gadget", "finished", 100, 10, 5)
	testutil.SeedWorkCenter(t, db, "WC-001", "Assembly Line A", "active")
	testutil.SeedWorkCenter(t, db, "WC-002", "Assembly Line B", "active")
}

func TestCreateCustomerOrderComputesTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 2, "unit_price": 10.0},
			{"product_id": "P-2025-0002", "quantity": 3, "unit_price": 5.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 200)

	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if resp.Order.TotalAmount != 35 {
		t.Errorf("total_amount = %v, want 35", resp.Order.TotalAmount)
	}
	if resp.Order.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Order.Status)
	}
	if len(resp.Order.Lines) != 2 {
		t.Errorf("got %d lines, want 2", len(resp.Order.Lines))
	}
}

func TestCreateCustomerOrderIDFormat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 1, "unit_price": 10.0},
		},
	}

	year := time.Now().Format("2006")
	for i, want := range []string{"CO-" + year + "-0001", "CO-" + year + "-0002"} {
		w := httptest.NewRecorder()
		h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
		testutil.AssertStatus(t, w, 200)

		var resp createOrderResponse
		testutil.DecodeEnvelope(t, w, &resp)
		if resp.Order.ID != want {
			t.Errorf("order %d id = %q, want %q", i+1, resp.Order.ID, want)
		}
	}
}

func TestCreateCustomerOrderGeneratesProductionOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	// 10 in stock, minimum 0: ordering 15 leaves a shortfall of 5.
	testutil.SeedProduct(t, db, "P-2025-0003", "SKU-3", "Gizmo", "finished", 10, 0, 20)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0003", "quantity": 15, "unit_price": 20.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 200)

	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if len(resp.ProductionOrders) != 1 {
		t.Fatalf("got %d production orders, want 1", len(resp.ProductionOrders))
	}
	po := resp.ProductionOrders[0]
	if po.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", po.Quantity)
	}
	if po.Priority != "high" {
		t.Errorf("priority = %q, want high", po.Priority)
	}
	if po.DueDate != "2026-06-09" {
		t.Errorf("due_date = %q, want 2026-06-09 (one day before required)", po.DueDate)
	}
	if po.CustomerOrderID == nil || *po.CustomerOrderID != resp.Order.ID {
		t.Errorf("customer_order_id = %v, want %s", po.CustomerOrderID, resp.Order.ID)
	}
	if !strings.HasPrefix(po.ID, "WO-") {
		t.Errorf("production order id = %q, want WO- prefix", po.ID)
	}

	if len(resp.Generation) != 1 || resp.Generation[0].Status != "created" {
		t.Fatalf("generation = %+v, want one created result", resp.Generation)
	}

	// The operation is routed to the first active work center by id.
	var wcID string
	if err := db.QueryRow("SELECT work_center_id FROM operations WHERE production_order_id=?", po.ID).Scan(&wcID); err != nil {
		t.Fatalf("operation lookup: %v", err)
	}
	if wcID != "WC-001" {
		t.Errorf("work center = %q, want WC-001", wcID)
	}
}

func TestCreateCustomerOrderBelowMinimumGenerates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	// 50 in stock, minimum 40: ordering 20 leaves 30, ten below minimum.
	testutil.SeedProduct(t, db, "P-2025-0003", "SKU-3", "Gizmo", "finished", 50, 40, 20)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0003", "quantity": 20, "unit_price": 20.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 200)

	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if len(resp.ProductionOrders) != 1 {
		t.Fatalf("got %d production orders, want 1", len(resp.ProductionOrders))
	}
	if resp.ProductionOrders[0].Quantity != 10 {
		t.Errorf("quantity = %d, want 10", resp.ProductionOrders[0].Quantity)
	}
}

func TestCreateCustomerOrderSufficientStockNoGeneration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 5, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 200)

	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if len(resp.ProductionOrders) != 0 {
		t.Errorf("got %d production orders, want 0", len(resp.ProductionOrders))
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM production_orders").Scan(&count)
	if count != 0 {
		t.Errorf("production_orders rows = %d, want 0", count)
	}
}

func TestCreateCustomerOrderNoActiveWorkCenter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedCustomer(t, db, "CUST-001", "Acme Corp")
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 10, 0, 10)
	testutil.SeedWorkCenter(t, db, "WC-001", "Assembly Line A", "maintenance")
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 15, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))

	// The order itself still succeeds; generation reports the failure.
	testutil.AssertStatus(t, w, 200)
	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if len(resp.ProductionOrders) != 0 {
		t.Errorf("got %d production orders, want 0", len(resp.ProductionOrders))
	}
	if len(resp.Generation) != 1 || resp.Generation[0].Status != "failed" {
		t.Fatalf("generation = %+v, want one failed result", resp.Generation)
	}
	var orders int
	db.QueryRow("SELECT COUNT(*) FROM customer_orders").Scan(&orders)
	if orders != 1 {
		t.Errorf("customer_orders rows = %d, want 1", orders)
	}
}

func TestCreateCustomerOrderInvalidDateRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "June 10th 2026",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 1, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 400)

	var orders, lines int
	db.QueryRow("SELECT COUNT(*) FROM customer_orders").Scan(&orders)
	db.QueryRow("SELECT COUNT(*) FROM customer_order_lines").Scan(&lines)
	if orders != 0 || lines != 0 {
		t.Errorf("rows after rejected create: orders=%d lines=%d, want 0/0", orders, lines)
	}
}

func TestCreateCustomerOrderUnknownProductRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-9999", "quantity": 1, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestCreateCustomerOrderZeroQuantityRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 0, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestCreateCustomerOrderUnknownCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-999",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 1, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	testutil.AssertStatus(t, w, 404)
}

func TestUpdateCustomerOrderStatusTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 1, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	orderID := resp.Order.ID

	// pending -> shipped skips confirmation and must be rejected.
	w = httptest.NewRecorder()
	h.UpdateCustomerOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/api/v1/customer-orders/"+orderID+"/status",
		map[string]string{"status": "shipped"}, ""), orderID)
	testutil.AssertStatus(t, w, 400)

	// pending -> confirmed is legal.
	w = httptest.NewRecorder()
	h.UpdateCustomerOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/api/v1/customer-orders/"+orderID+"/status",
		map[string]string{"status": "confirmed"}, ""), orderID)
	testutil.AssertStatus(t, w, 200)

	var status string
	db.QueryRow("SELECT status FROM customer_orders WHERE id=?", orderID).Scan(&status)
	if status != "confirmed" {
		t.Errorf("status = %q, want confirmed", status)
	}
}

func TestDeleteCustomerOrderOnlyPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOrderFixtures(t, db)
	h := newHandler(db)

	body := map[string]interface{}{
		"customer_id":   "CUST-001",
		"required_date": "2026-06-10",
		"lines": []map[string]interface{}{
			{"product_id": "P-2025-0001", "quantity": 1, "unit_price": 10.0},
		},
	}
	w := httptest.NewRecorder()
	h.CreateCustomerOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/customer-orders", body, ""))
	var resp createOrderResponse
	testutil.DecodeEnvelope(t, w, &resp)
	orderID := resp.Order.ID

	w = httptest.NewRecorder()
	h.UpdateCustomerOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x", map[string]string{"status": "confirmed"}, ""), orderID)
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	h.DeleteCustomerOrder(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), orderID)
	testutil.AssertStatus(t, w, 400)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM customer_orders WHERE id=?", orderID).Scan(&count)
	if count != 1 {
		t.Errorf("confirmed order was deleted")
	}
}
