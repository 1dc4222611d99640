package manufacturing

import (
	"fmt"
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/ids"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

const (
	dateFormat     = "2006-01-02"
	datetimeFormat = "2006-01-02 15:04:05"
)

// ListProductionOrders handles GET /api/v1/production-orders.
func (h *Handler) ListProductionOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	priority := r.URL.Query().Get("priority")
	customerOrder := r.URL.Query().Get("customer_order_id")

	query := "SELECT id,product_id,quantity,start_date,due_date,priority,status,customer_order_id,COALESCE(notes,''),created_at,updated_at FROM production_orders WHERE 1=1"
	var args []interface{}
	if status != "" {
		query += " AND status=?"
		args = append(args, status)
	}
	if priority != "" {
		query += " AND priority=?"
		args = append(args, priority)
	}
	if customerOrder != "" {
		query += " AND customer_order_id=?"
		args = append(args, customerOrder)
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.ProductionOrder
	for rows.Next() {
		var po models.ProductionOrder
		rows.Scan(&po.ID, &po.ProductID, &po.Quantity, &po.StartDate, &po.DueDate, &po.Priority, &po.Status, &po.CustomerOrderID, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
		items = append(items, po)
	}
	if items == nil {
		items = []models.ProductionOrder{}
	}
	response.JSON(w, items)
}

// GetProductionOrder handles GET /api/v1/production-orders/:id, returning
// the order with its operations.
func (h *Handler) GetProductionOrder(w http.ResponseWriter, r *http.Request, id string) {
	var po models.ProductionOrder
	err := h.DB.QueryRow("SELECT id,product_id,quantity,start_date,due_date,priority,status,customer_order_id,COALESCE(notes,''),created_at,updated_at FROM production_orders WHERE id=?", id).
		Scan(&po.ID, &po.ProductID, &po.Quantity, &po.StartDate, &po.DueDate, &po.Priority, &po.Status, &po.CustomerOrderID, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	po.Operations = h.getOperations(id)
	response.JSON(w, po)
}

func (h *Handler) getOperations(orderID string) []models.Operation {
	rows, err := h.DB.Query("SELECT id,production_order_id,work_center_id,COALESCE(description,''),start_time,end_time,cost,status FROM operations WHERE production_order_id=? ORDER BY id", orderID)
	if err != nil {
		return []models.Operation{}
	}
	defer rows.Close()
	var ops []models.Operation
	for rows.Next() {
		var op models.Operation
		rows.Scan(&op.ID, &op.ProductionOrderID, &op.WorkCenterID, &op.Description, &op.StartTime, &op.EndTime, &op.Cost, &op.Status)
		ops = append(ops, op)
	}
	if ops == nil {
		ops = []models.Operation{}
	}
	return ops
}

// createProductionOrderRequest is the POST /api/v1/production-orders body
// for manually planned orders.
type createProductionOrderRequest struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	StartDate    string `json:"start_date"`
	DueDate      string `json:"due_date"`
	Priority     string `json:"priority"`
	WorkCenterID string `json:"work_center_id"`
	Notes        string `json:"notes"`
}

// CreateProductionOrder handles POST /api/v1/production-orders. One initial
// operation is attached, bound to the requested work center or, absent one,
// the first active work center.
func (h *Handler) CreateProductionOrder(w http.ResponseWriter, r *http.Request) {
	var req createProductionOrderRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "product_id", req.ProductID)
	validation.ValidatePositiveInt(ve, "quantity", req.Quantity)
	validation.ValidateMaxQuantity(ve, "quantity", req.Quantity)
	validation.ValidateDate(ve, "start_date", req.StartDate)
	validation.RequireField(ve, "due_date", req.DueDate)
	validation.ValidateDate(ve, "due_date", req.DueDate)
	validation.ValidateEnum(ve, "priority", req.Priority, validation.ValidPriorities)
	validation.ValidateMaxLength(ve, "notes", req.Notes, validation.MaxStringLength)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var exists int
	h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", req.ProductID).Scan(&exists)
	if exists == 0 {
		response.Err(w, "product not found", 404)
		return
	}

	workCenterID := req.WorkCenterID
	if workCenterID == "" {
		if err := h.DB.QueryRow("SELECT id FROM work_centers WHERE status='active' ORDER BY id LIMIT 1").Scan(&workCenterID); err != nil {
			response.Err(w, "no active work center available", 409)
			return
		}
	} else {
		var status string
		if err := h.DB.QueryRow("SELECT status FROM work_centers WHERE id=?", workCenterID).Scan(&status); err != nil {
			response.Err(w, "work center not found", 404)
			return
		}
		if status != "active" {
			response.Err(w, "work center is not active", 409)
			return
		}
	}

	if req.Priority == "" {
		req.Priority = "medium"
	}
	if req.StartDate == "" {
		req.StartDate = time.Now().Format(dateFormat)
	}

	now := time.Now().Format(datetimeFormat)
	var poID string
	for attempt := 0; ; attempt++ {
		poID = h.NextID("WO", "production_orders", 4)
		tx, err := h.DB.Begin()
		if err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		_, err = tx.Exec("INSERT INTO production_orders (id,product_id,quantity,start_date,due_date,priority,status,customer_order_id,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
			poID, req.ProductID, req.Quantity, req.StartDate, req.DueDate, req.Priority, "pending", nil, req.Notes, now, now)
		if err != nil {
			tx.Rollback()
			if ids.IsUniqueViolation(err) && attempt < 4 {
				continue
			}
			response.Err(w, err.Error(), 500)
			return
		}
		_, err = tx.Exec("INSERT INTO operations (production_order_id,work_center_id,description,start_time,end_time,cost,status) VALUES (?,?,?,?,?,?,?)",
			poID, workCenterID, "Produce "+req.ProductID, req.StartDate, req.DueDate, 0, "pending")
		if err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
		if err := tx.Commit(); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		break
	}

	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "production_order", poID, "Created "+poID+" for "+req.ProductID)
	h.GetProductionOrder(w, r, poID)
}

// Legal production-order status transitions.
var productionStatusTransitions = map[string][]string{
	"pending":     {"in_progress", "cancelled"},
	"in_progress": {"completed", "cancelled"},
}

// UpdateProductionOrderStatus handles PUT /api/v1/production-orders/:id/status.
// Completing an order receives the produced quantity into stock.
func (h *Handler) UpdateProductionOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "status", req.Status)
	validation.ValidateEnum(ve, "status", req.Status, validation.ValidProductionOrderStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var current, productID string
	var qty int
	if err := h.DB.QueryRow("SELECT status, product_id, quantity FROM production_orders WHERE id=?", id).Scan(&current, &productID, &qty); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	allowed := false
	for _, next := range productionStatusTransitions[current] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		response.Err(w, fmt.Sprintf("invalid transition from %s to %s", current, req.Status), 400)
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	now := time.Now().Format(datetimeFormat)
	if _, err := tx.Exec("UPDATE production_orders SET status=?, updated_at=? WHERE id=?", req.Status, now, id); err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	if req.Status == "completed" {
		if _, err := tx.Exec("UPDATE products SET current_stock=current_stock+?, updated_at=? WHERE id=?", qty, now, productID); err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
		if _, err := tx.Exec("INSERT INTO inventory_transactions (product_id,type,qty,reference,notes) VALUES (?,?,?,?,?)",
			productID, "receive", qty, id, "Production order completed"); err != nil {
			tx.Rollback()
			response.Err(w, err.Error(), 500)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "production_order", id, "Status "+current+" -> "+req.Status)
	h.GetProductionOrder(w, r, id)
}

// DeleteProductionOrder handles DELETE /api/v1/production-orders/:id.
// Only pending orders can be deleted; operations cascade.
func (h *Handler) DeleteProductionOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := h.DB.QueryRow("SELECT status FROM production_orders WHERE id=?", id).Scan(&status); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if status != "pending" {
		response.Err(w, "only pending production orders can be deleted", 400)
		return
	}
	if _, err := h.DB.Exec("DELETE FROM production_orders WHERE id=?", id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "production_order", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
