package procurement

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"mfgops/internal/audit"
	"mfgops/internal/ids"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// ListPurchaseOrders handles GET /api/v1/purchase-orders.
func (h *Handler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	supplier := r.URL.Query().Get("supplier_id")

	query := "SELECT id,supplier_id,status,COALESCE(expected_date,''),total,COALESCE(notes,''),COALESCE(created_by,''),created_at,received_at FROM purchase_orders WHERE 1=1"
	var args []interface{}
	if status != "" {
		query += " AND status=?"
		args = append(args, status)
	}
	if supplier != "" {
		query += " AND supplier_id=?"
		args = append(args, supplier)
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.PurchaseOrder
	for rows.Next() {
		var po models.PurchaseOrder
		rows.Scan(&po.ID, &po.SupplierID, &po.Status, &po.ExpectedDate, &po.Total, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.ReceivedAt)
		items = append(items, po)
	}
	if items == nil {
		items = []models.PurchaseOrder{}
	}
	response.JSON(w, items)
}

// GetPurchaseOrder handles GET /api/v1/purchase-orders/:id.
func (h *Handler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request, id string) {
	var po models.PurchaseOrder
	err := h.DB.QueryRow("SELECT id,supplier_id,status,COALESCE(expected_date,''),total,COALESCE(notes,''),COALESCE(created_by,''),created_at,received_at FROM purchase_orders WHERE id=?", id).
		Scan(&po.ID, &po.SupplierID, &po.Status, &po.ExpectedDate, &po.Total, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.ReceivedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	po.Lines = h.getPOLines(id)
	response.JSON(w, po)
}

func (h *Handler) getPOLines(poID string) []models.POLine {
	rows, err := h.DB.Query("SELECT id,purchase_order_id,product_id,qty,unit_price FROM purchase_order_lines WHERE purchase_order_id=?", poID)
	if err != nil {
		return []models.POLine{}
	}
	defer rows.Close()
	var lines []models.POLine
	for rows.Next() {
		var l models.POLine
		rows.Scan(&l.ID, &l.PurchaseOrderID, &l.ProductID, &l.Qty, &l.UnitPrice)
		lines = append(lines, l)
	}
	if lines == nil {
		lines = []models.POLine{}
	}
	return lines
}

// CreatePurchaseOrder handles POST /api/v1/purchase-orders.
func (h *Handler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var po models.PurchaseOrder
	if err := response.DecodeBody(r, &po); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "supplier_id", po.SupplierID)
	validation.ValidateDate(ve, "expected_date", po.ExpectedDate)
	if len(po.Lines) == 0 {
		ve.Add("lines", "at least one line is required")
	}
	for i, l := range po.Lines {
		validation.ValidatePositiveInt(ve, fmt.Sprintf("lines[%d].qty", i), l.Qty)
		validation.ValidateNonNegativeFloat(ve, fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var exists int
	h.DB.QueryRow("SELECT COUNT(*) FROM suppliers WHERE id=?", po.SupplierID).Scan(&exists)
	if exists == 0 {
		response.Err(w, "supplier not found", 404)
		return
	}
	for i, l := range po.Lines {
		h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", l.ProductID).Scan(&exists)
		if exists == 0 {
			ve.Add(fmt.Sprintf("lines[%d].product_id", i), "product "+l.ProductID+" not found")
		}
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	po.Total, _ = total.Float64()

	po.Status = "draft"
	po.CreatedBy = audit.GetUsername(h.DB, r)
	now := time.Now().Format(datetimeFormat)

	var err error
	for attempt := 0; ; attempt++ {
		po.ID = h.NextID("PO", "purchase_orders", 4)
		tx, txErr := h.DB.Begin()
		if txErr != nil {
			response.Err(w, txErr.Error(), 500)
			return
		}
		_, err = tx.Exec("INSERT INTO purchase_orders (id,supplier_id,status,expected_date,total,notes,created_by,created_at) VALUES (?,?,?,?,?,?,?,?)",
			po.ID, po.SupplierID, po.Status, po.ExpectedDate, po.Total, po.Notes, po.CreatedBy, now)
		if err != nil {
			tx.Rollback()
			if ids.IsUniqueViolation(err) && attempt < 4 {
				continue
			}
			response.Err(w, err.Error(), 500)
			return
		}
		for _, l := range po.Lines {
			if _, err = tx.Exec("INSERT INTO purchase_order_lines (purchase_order_id,product_id,qty,unit_price) VALUES (?,?,?,?)",
				po.ID, l.ProductID, l.Qty, l.UnitPrice); err != nil {
				tx.Rollback()
				response.Err(w, err.Error(), 500)
				return
			}
		}
		if err = tx.Commit(); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		break
	}

	po.CreatedAt = now
	audit.LogAudit(h.DB, h.Hub, po.CreatedBy, "created", "purchase_order", po.ID, "Created "+po.ID+" for "+po.SupplierID)
	h.GetPurchaseOrder(w, r, po.ID)
}

// Legal purchase-order status transitions. Receiving is a separate action.
var poStatusTransitions = map[string][]string{
	"draft":     {"sent", "cancelled"},
	"sent":      {"confirmed", "cancelled"},
	"confirmed": {"cancelled"},
}

// UpdatePurchaseOrderStatus handles PUT /api/v1/purchase-orders/:id/status.
func (h *Handler) UpdatePurchaseOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "status", req.Status)
	validation.ValidateEnum(ve, "status", req.Status, validation.ValidPurchaseOrderStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}
	if req.Status == "received" {
		response.Err(w, "use the receive endpoint to mark a purchase order received", 400)
		return
	}

	var current string
	if err := h.DB.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&current); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	allowed := false
	for _, next := range poStatusTransitions[current] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		response.Err(w, fmt.Sprintf("invalid transition from %s to %s", current, req.Status), 400)
		return
	}

	if _, err := h.DB.Exec("UPDATE purchase_orders SET status=? WHERE id=?", req.Status, id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "purchase_order", id, "Status "+current+" -> "+req.Status)
	h.GetPurchaseOrder(w, r, id)
}

// ReceivePurchaseOrder handles POST /api/v1/purchase-orders/:id/receive.
// Every line is received in full: stock is incremented and a receive
// transaction posted per line, all in one database transaction.
func (h *Handler) ReceivePurchaseOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := h.DB.QueryRow("SELECT status FROM purchase_orders WHERE id=?", id).Scan(&status); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if status != "sent" && status != "confirmed" {
		response.Err(w, "purchase order must be sent or confirmed to receive", 400)
		return
	}

	lines := h.getPOLines(id)
	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	now := time.Now().Format(datetimeFormat)
	for _, l := range lines {
		if _, err := tx.Exec("UPDATE products SET current_stock=current_stock+?, updated_at=? WHERE id=?", l.Qty, now, l.ProductID); err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
		if _, err := tx.Exec("INSERT INTO inventory_transactions (product_id,type,qty,reference,notes) VALUES (?,?,?,?,?)",
			l.ProductID, "receive", l.Qty, id, "Purchase order received"); err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
	}
	if _, err := tx.Exec("UPDATE purchase_orders SET status='received', received_at=? WHERE id=?", now, id); err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "received", "purchase_order", id, "Received "+id)
	h.GetPurchaseOrder(w, r, id)
}
