package sales

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

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

// createOrderRequest is the POST /api/v1/customer-orders body.
type createOrderRequest struct {
	CustomerID   string            `json:"customer_id"`
	RequiredDate string            `json:"required_date"`
	Notes        string            `json:"notes"`
	Lines        []createOrderLine `json:"lines"`
}

type createOrderLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// createOrderResponse carries the persisted order plus the per-product
// outcomes of automatic production-order generation, so the caller can
// render true partial success instead of a blanket success message.
type createOrderResponse struct {
	Order            models.CustomerOrder      `json:"order"`
	ProductionOrders []models.ProductionOrder  `json:"production_orders"`
	Generation       []models.GenerationResult `json:"generation"`
}

// ListCustomerOrders handles GET /api/v1/customer-orders.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	customer := r.URL.Query().Get("customer_id")

	query := "SELECT id,customer_id,order_date,required_date,status,total_amount,COALESCE(notes,''),COALESCE(created_by,''),created_at,updated_at FROM customer_orders"
	var conditions []string
	var args []interface{}
	if status != "" {
		conditions = append(conditions, "status=?")
		args = append(args, status)
	}
	if customer != "" {
		conditions = append(conditions, "customer_id=?")
		args = append(args, customer)
	}
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.CustomerOrder
	for rows.Next() {
		var o models.CustomerOrder
		rows.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.RequiredDate, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
		items = append(items, o)
	}
	if items == nil {
		items = []models.CustomerOrder{}
	}
	response.JSON(w, items)
}

// GetCustomerOrder handles GET /api/v1/customer-orders/:id.
func (h *Handler) GetCustomerOrder(w http.ResponseWriter, r *http.Request, id string) {
	var o models.CustomerOrder
	err := h.DB.QueryRow("SELECT id,customer_id,order_date,required_date,status,total_amount,COALESCE(notes,''),COALESCE(created_by,''),created_at,updated_at FROM customer_orders WHERE id=?", id).
		Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.RequiredDate, &o.Status, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	o.Lines = h.getOrderLines(id)
	o.ProductionOrders = h.getLinkedProductionOrders(id)
	response.JSON(w, o)
}

func (h *Handler) getOrderLines(orderID string) []models.OrderLine {
	rows, err := h.DB.Query("SELECT id,customer_order_id,product_id,quantity,unit_price,status FROM customer_order_lines WHERE customer_order_id=?", orderID)
	if err != nil {
		return []models.OrderLine{}
	}
	defer rows.Close()
	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		rows.Scan(&l.ID, &l.CustomerOrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Status)
		lines = append(lines, l)
	}
	if lines == nil {
		lines = []models.OrderLine{}
	}
	return lines
}

func (h *Handler) getLinkedProductionOrders(orderID string) []models.ProductionOrder {
	rows, err := h.DB.Query("SELECT id,product_id,quantity,start_date,due_date,priority,status,customer_order_id,COALESCE(notes,''),created_at,updated_at FROM production_orders WHERE customer_order_id=? ORDER BY id", orderID)
	if err != nil {
		return []models.ProductionOrder{}
	}
	defer rows.Close()
	var orders []models.ProductionOrder
	for rows.Next() {
		var po models.ProductionOrder
		rows.Scan(&po.ID, &po.ProductID, &po.Quantity, &po.StartDate, &po.DueDate, &po.Priority, &po.Status, &po.CustomerOrderID, &po.Notes, &po.CreatedAt, &po.UpdatedAt)
		orders = append(orders, po)
	}
	if orders == nil {
		orders = []models.ProductionOrder{}
	}
	return orders
}

// CreateCustomerOrder handles POST /api/v1/customer-orders.
//
// Sequence: validate, check stock sufficiency, persist order + lines in one
// transaction, then generate production orders for any shortfall. The stock
// snapshot used for generation is the one taken before persistence; a
// concurrent stock adjustment between check and generation is accepted.
func (h *Handler) CreateCustomerOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "customer_id", req.CustomerID)
	validation.RequireField(ve, "required_date", req.RequiredDate)
	validation.ValidateDate(ve, "required_date", req.RequiredDate)
	validation.ValidateMaxLength(ve, "notes", req.Notes, validation.MaxStringLength)
	if len(req.Lines) == 0 {
		ve.Add("lines", "at least one order line is required")
	}
	for i, l := range req.Lines {
		validation.ValidatePositiveInt(ve, fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		validation.ValidateMaxQuantity(ve, fmt.Sprintf("lines[%d].quantity", i), l.Quantity)
		validation.ValidateNonNegativeFloat(ve, fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
		validation.ValidateMaxPrice(ve, fmt.Sprintf("lines[%d].unit_price", i), l.UnitPrice)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	if req.CustomerID != "" {
		var exists int
		if err := h.DB.QueryRow("SELECT COUNT(*) FROM customers WHERE id=?", req.CustomerID).Scan(&exists); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		if exists == 0 {
			response.Err(w, "customer not found", 404)
			return
		}
	}

	// Every line must reference an existing product. Unknown products are
	// rejected up front rather than skipped during the stock check.
	for i, l := range req.Lines {
		var exists int
		if err := h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", l.ProductID).Scan(&exists); err != nil {
			response.Err(w, err.Error(), 500)
			return
		}
		if exists == 0 {
			ve.Add(fmt.Sprintf("lines[%d].product_id", i), "product "+l.ProductID+" not found")
		}
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	// Stock sufficiency snapshot, taken before any write.
	checkLines := make([]LineInput, len(req.Lines))
	for i, l := range req.Lines {
		checkLines[i] = LineInput{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	shortfalls, err := CheckStockLevels(h.DB, checkLines)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	total := decimal.Zero
	for _, l := range req.Lines {
		total = total.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	totalAmount, _ := total.Float64()

	now := time.Now().Format(datetimeFormat)
	orderDate := time.Now().Format(dateFormat)
	createdBy := audit.GetUsername(h.DB, r)

	// The id allocator reads the current maximum and is not atomic; the
	// PRIMARY KEY constraint is the arbiter. On a duplicate id the insert
	// is re-tried with a freshly allocated number.
	var orderID string
	for attempt := 0; ; attempt++ {
		orderID = h.NextID("CO", "customer_orders", 4)
		err = h.insertOrder(orderID, req, orderDate, totalAmount, createdBy, now)
		if err == nil {
			break
		}
		if ids.IsUniqueViolation(err) && attempt < 4 {
			continue
		}
		response.Err(w, err.Error(), 500)
		return
	}

	prodOrders, generation := h.generateProductionOrders(orderID, req.RequiredDate, shortfalls)

	order := models.CustomerOrder{
		ID:           orderID,
		CustomerID:   req.CustomerID,
		OrderDate:    orderDate,
		RequiredDate: req.RequiredDate,
		Status:       "pending",
		TotalAmount:  totalAmount,
		Notes:        req.Notes,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		Lines:        h.getOrderLines(orderID),
	}

	audit.LogAudit(h.DB, h.Hub, createdBy, "created", "customer_order", orderID,
		fmt.Sprintf("Created %s for %s (%d lines, %d production orders)", orderID, req.CustomerID, len(req.Lines), len(prodOrders)))
	response.JSON(w, createOrderResponse{
		Order:            order,
		ProductionOrders: prodOrders,
		Generation:       generation,
	})
}

// insertOrder writes the order row and its lines in one transaction.
func (h *Handler) insertOrder(orderID string, req createOrderRequest, orderDate string, totalAmount float64, createdBy, now string) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO customer_orders (id,customer_id,order_date,required_date,status,total_amount,notes,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		orderID, req.CustomerID, orderDate, req.RequiredDate, "pending", totalAmount, req.Notes, createdBy, now, now)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, l := range req.Lines {
		_, err = tx.Exec("INSERT INTO customer_order_lines (customer_order_id,product_id,quantity,unit_price,status) VALUES (?,?,?,?,?)",
			orderID, l.ProductID, l.Quantity, l.UnitPrice, "pending")
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// generateProductionOrders creates one high-priority production order per
// stock shortfall, each bound to the first active work center. Attempts are
// independent: a failure is recorded in the result list and logged, and the
// loop continues.
func (h *Handler) generateProductionOrders(orderID, requiredDate string, shortfalls []models.StockShortfall) ([]models.ProductionOrder, []models.GenerationResult) {
	orders := []models.ProductionOrder{}
	results := []models.GenerationResult{}
	if len(shortfalls) == 0 {
		return orders, results
	}

	var workCenterID string
	wcErr := h.DB.QueryRow("SELECT id FROM work_centers WHERE status='active' ORDER BY id LIMIT 1").Scan(&workCenterID)

	required, _ := time.Parse(dateFormat, requiredDate)
	dueDate := required.AddDate(0, 0, -1).Format(dateFormat)
	startDate := time.Now().Format(dateFormat)

	for _, sf := range shortfalls {
		if wcErr != nil {
			log.Printf("production order generation for %s (%s): no active work center", orderID, sf.ProductID)
			results = append(results, models.GenerationResult{
				ProductID: sf.ProductID,
				Status:    "failed",
				Error:     "no active work center",
			})
			continue
		}
		po, err := h.createGeneratedOrder(orderID, workCenterID, startDate, dueDate, sf)
		if err != nil {
			log.Printf("production order generation for %s (%s): %v", orderID, sf.ProductID, err)
			results = append(results, models.GenerationResult{
				ProductID: sf.ProductID,
				Status:    "failed",
				Error:     err.Error(),
			})
			continue
		}
		orders = append(orders, po)
		results = append(results, models.GenerationResult{
			ProductID:         sf.ProductID,
			Status:            "created",
			ProductionOrderID: po.ID,
		})
		h.Hub.BroadcastChange("production_order", po.ID, "created")
	}
	return orders, results
}

func (h *Handler) createGeneratedOrder(orderID, workCenterID, startDate, dueDate string, sf models.StockShortfall) (models.ProductionOrder, error) {
	now := time.Now().Format(datetimeFormat)
	notes := fmt.Sprintf("Auto-generated for %s: %s", orderID, sf.Reason)

	var poID string
	var err error
	for attempt := 0; ; attempt++ {
		poID = h.NextID("WO", "production_orders", 4)
		tx, txErr := h.DB.Begin()
		if txErr != nil {
			return models.ProductionOrder{}, txErr
		}
		_, err = tx.Exec("INSERT INTO production_orders (id,product_id,quantity,start_date,due_date,priority,status,customer_order_id,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
			poID, sf.ProductID, sf.RequiredQuantity, startDate, dueDate, "high", "pending", orderID, notes, now, now)
		if err != nil {
			tx.Rollback()
			if ids.IsUniqueViolation(err) && attempt < 4 {
				continue
			}
			return models.ProductionOrder{}, err
		}
		_, err = tx.Exec("INSERT INTO operations (production_order_id,work_center_id,description,start_time,end_time,cost,status) VALUES (?,?,?,?,?,?,?)",
			poID, workCenterID, "Produce "+sf.ProductID, startDate, dueDate, 0, "pending")
		if err != nil {
			tx.Rollback()
			return models.ProductionOrder{}, err
		}
		if err = tx.Commit(); err != nil {
			return models.ProductionOrder{}, err
		}
		break
	}

	coID := orderID
	return models.ProductionOrder{
		ID:              poID,
		ProductID:       sf.ProductID,
		Quantity:        sf.RequiredQuantity,
		StartDate:       startDate,
		DueDate:         dueDate,
		Priority:        "high",
		Status:          "pending",
		CustomerOrderID: &coID,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Legal customer-order status transitions.
var orderStatusTransitions = map[string][]string{
	"pending":       {"confirmed", "cancelled"},
	"confirmed":     {"in_production", "shipped", "cancelled"},
	"in_production": {"shipped", "cancelled"},
	"shipped":       {"delivered"},
}

// UpdateCustomerOrderStatus handles PUT /api/v1/customer-orders/:id/status.
func (h *Handler) UpdateCustomerOrderStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "status", req.Status)
	validation.ValidateEnum(ve, "status", req.Status, validation.ValidCustomerOrderStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var current string
	if err := h.DB.QueryRow("SELECT status FROM customer_orders WHERE id=?", id).Scan(&current); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	allowed := false
	for _, next := range orderStatusTransitions[current] {
		if next == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		response.Err(w, fmt.Sprintf("invalid transition from %s to %s", current, req.Status), 400)
		return
	}

	now := time.Now().Format(datetimeFormat)
	if _, err := h.DB.Exec("UPDATE customer_orders SET status=?, updated_at=? WHERE id=?", req.Status, now, id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "customer_order", id, "Status "+current+" -> "+req.Status)
	h.GetCustomerOrder(w, r, id)
}

// DeleteCustomerOrder handles DELETE /api/v1/customer-orders/:id.
// Only pending orders can be deleted; lines cascade, generated production
// orders are detached (customer_order_id set to NULL), not removed.
func (h *Handler) DeleteCustomerOrder(w http.ResponseWriter, r *http.Request, id string) {
	var status string
	if err := h.DB.QueryRow("SELECT status FROM customer_orders WHERE id=?", id).Scan(&status); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if status != "pending" {
		response.Err(w, "only pending orders can be deleted", 400)
		return
	}
	if _, err := h.DB.Exec("DELETE FROM customer_orders WHERE id=?", id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "customer_order", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
