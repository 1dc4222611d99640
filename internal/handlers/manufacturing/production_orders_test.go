package manufacturing

import (
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"mfgops/internal/ids"
	"mfgops/internal/models"
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

func TestCreateProductionOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedWorkCenter(t, db, "WC-001", "Line A", "active")
	h := newHandler(db)

	body := map[string]interface{}{
		"product_id": "P-2025-0001",
		"quantity":   10,
		"due_date":   "2026-03-01",
		"priority":   "high",
	}
	w := httptest.NewRecorder()
	h.CreateProductionOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/production-orders", body, ""))
	testutil.AssertStatus(t, w, 200)

	var po models.ProductionOrder
	testutil.DecodeEnvelope(t, w, &po)
	year := time.Now().Format("2006")
	if po.ID != "WO-"+year+"-0001" {
		t.Errorf("id = %q, want WO-%s-0001", po.ID, year)
	}
	if po.Status != "pending" {
		t.Errorf("status = %q, want pending", po.Status)
	}
	if len(po.Operations) != 1 || po.Operations[0].WorkCenterID != "WC-001" {
		t.Errorf("operations = %+v, want one on WC-001", po.Operations)
	}
	if po.CustomerOrderID != nil {
		t.Errorf("customer_order_id = %v, want nil for manual order", *po.CustomerOrderID)
	}
}

func TestCreateProductionOrderRequiresDueDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedWorkCenter(t, db, "WC-001", "Line A", "active")
	h := newHandler(db)

	body := map[string]interface{}{
		"product_id": "P-2025-0001",
		"quantity":   10,
	}
	w := httptest.NewRecorder()
	h.CreateProductionOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/production-orders", body, ""))
	testutil.AssertStatus(t, w, 400)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM production_orders").Scan(&count)
	if count != 0 {
		t.Errorf("production_orders = %d, want 0", count)
	}
}

func TestCreateProductionOrderNoActiveWorkCenter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedWorkCenter(t, db, "WC-001", "Line A", "inactive")
	h := newHandler(db)

	body := map[string]interface{}{
		"product_id": "P-2025-0001",
		"quantity":   10,
		"due_date":   "2026-03-01",
	}
	w := httptest.NewRecorder()
	h.CreateProductionOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/production-orders", body, ""))
	testutil.AssertStatus(t, w, 409)
}

func TestCreateProductionOrderInactiveRequestedWorkCenter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedWorkCenter(t, db, "WC-001", "Line A", "maintenance")
	h := newHandler(db)

	body := map[string]interface{}{
		"product_id":     "P-2025-0001",
		"quantity":       10,
		"due_date":       "2026-03-01",
		"work_center_id": "WC-001",
	}
	w := httptest.NewRecorder()
	h.CreateProductionOrder(w, testutil.AuthedJSONRequest("POST", "/api/v1/production-orders", body, ""))
	testutil.AssertStatus(t, w, 409)
}

func TestCompleteProductionOrderReceivesStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 5, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 10, "in_progress", "2026-01-01")
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.UpdateProductionOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x",
		map[string]string{"status": "completed"}, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 200)

	var stock int
	db.QueryRow("SELECT current_stock FROM products WHERE id='P-2025-0001'").Scan(&stock)
	if stock != 15 {
		t.Errorf("current_stock = %d, want 15", stock)
	}
	var txType string
	var qty int
	db.QueryRow("SELECT type, qty FROM inventory_transactions WHERE reference='WO-2025-0001'").Scan(&txType, &qty)
	if txType != "receive" || qty != 10 {
		t.Errorf("transaction = %s %d, want receive 10", txType, qty)
	}
}

func TestProductionOrderStatusTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 10, "pending", "2026-01-01")
	h := newHandler(db)

	// pending -> completed skips in_progress.
	w := httptest.NewRecorder()
	h.UpdateProductionOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x",
		map[string]string{"status": "completed"}, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 400)

	w = httptest.NewRecorder()
	h.UpdateProductionOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x",
		map[string]string{"status": "in_progress"}, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 200)

	// Completed is terminal.
	w = httptest.NewRecorder()
	h.UpdateProductionOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x",
		map[string]string{"status": "completed"}, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	h.UpdateProductionOrderStatus(w, testutil.AuthedJSONRequest("PUT", "/x",
		map[string]string{"status": "cancelled"}, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 400)
}

func TestDeleteProductionOrderOnlyPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedProductionOrder(t, db, "WO-2025-0001", "P-2025-0001", 10, "in_progress", "2026-01-01")
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.DeleteProductionOrder(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), "WO-2025-0001")
	testutil.AssertStatus(t, w, 400)
}

func TestAddBOMLine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedProduct(t, db, "P-2025-0002", "SKU-2", "Bracket", "component", 0, 0, 1)
	h := newHandler(db)

	body := map[string]interface{}{"component_id": "P-2025-0002", "qty_per_unit": 2.0}
	w := httptest.NewRecorder()
	h.AddBOMLine(w, testutil.AuthedJSONRequest("POST", "/x", body, ""), "P-2025-0001")
	testutil.AssertStatus(t, w, 200)

	// Second add of the same component conflicts.
	w = httptest.NewRecorder()
	h.AddBOMLine(w, testutil.AuthedJSONRequest("POST", "/x", body, ""), "P-2025-0001")
	testutil.AssertStatus(t, w, 409)
}

func TestAddBOMLineSelfReferenceRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	h := newHandler(db)

	body := map[string]interface{}{"component_id": "P-2025-0001", "qty_per_unit": 1.0}
	w := httptest.NewRecorder()
	h.AddBOMLine(w, testutil.AuthedJSONRequest("POST", "/x", body, ""), "P-2025-0001")
	testutil.AssertStatus(t, w, 400)
}

func TestRemoveBOMLine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 0, 0, 1)
	testutil.SeedProduct(t, db, "P-2025-0002", "SKU-2", "Bracket", "component", 0, 0, 1)
	db.Exec("INSERT INTO bom_lines (product_id,component_id,qty_per_unit) VALUES ('P-2025-0001','P-2025-0002',1)")
	h := newHandler(db)

	var lineID string
	db.QueryRow("SELECT id FROM bom_lines LIMIT 1").Scan(&lineID)

	w := httptest.NewRecorder()
	h.RemoveBOMLine(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), "P-2025-0001", lineID)
	testutil.AssertStatus(t, w, 200)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM bom_lines").Scan(&count)
	if count != 0 {
		t.Errorf("bom_lines = %d, want 0", count)
	}
}
