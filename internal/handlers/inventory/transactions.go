package inventory

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// adjustRequest is the POST /api/v1/products/:id/adjust body. Qty is the
// signed stock delta for "adjust"; for the other types it is an absolute
// quantity and the sign is implied by the type.
type adjustRequest struct {
	Type      string `json:"type"`
	Qty       int    `json:"qty"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

// AdjustStock handles POST /api/v1/products/:id/adjust. The transaction row
// and the stock mutation commit together; stock can never go negative.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request, id string) {
	var req adjustRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "type", req.Type)
	validation.ValidateEnum(ve, "type", req.Type, validation.ValidTransactionTypes)
	if req.Type != "adjust" {
		validation.ValidatePositiveInt(ve, "qty", req.Qty)
	} else if req.Qty == 0 {
		ve.Add("qty", "must be non-zero")
	}
	validation.ValidateMaxLength(ve, "notes", req.Notes, validation.MaxStringLength)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var currentStock int
	if err := h.DB.QueryRow("SELECT current_stock FROM products WHERE id=?", id).Scan(&currentStock); err != nil {
		response.Err(w, "not found", 404)
		return
	}

	delta := req.Qty
	switch req.Type {
	case "issue", "scrap":
		delta = -req.Qty
	}
	if currentStock+delta < 0 {
		response.Err(w, "insufficient stock for this movement", 400)
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	now := time.Now().Format(datetimeFormat)
	if _, err := tx.Exec("UPDATE products SET current_stock=current_stock+?, updated_at=? WHERE id=?", delta, now, id); err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	res, err := tx.Exec("INSERT INTO inventory_transactions (product_id,type,qty,reference,notes) VALUES (?,?,?,?,?)",
		id, req.Type, delta, req.Reference, req.Notes)
	if err != nil {
		tx.Rollback()
		response.Err(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}

	txID, _ := res.LastInsertId()
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "adjusted", "inventory", id, req.Type+" stock for "+id)
	response.JSON(w, models.InventoryTransaction{
		ID:        int(txID),
		ProductID: id,
		Type:      req.Type,
		Qty:       delta,
		Reference: req.Reference,
		Notes:     req.Notes,
		CreatedAt: now,
	})
}

// ListTransactions handles GET /api/v1/products/:id/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request, id string) {
	rows, err := h.DB.Query("SELECT id,product_id,type,qty,COALESCE(reference,''),COALESCE(notes,''),created_at FROM inventory_transactions WHERE product_id=? ORDER BY id DESC", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	items := []models.InventoryTransaction{}
	for rows.Next() {
		var t models.InventoryTransaction
		rows.Scan(&t.ID, &t.ProductID, &t.Type, &t.Qty, &t.Reference, &t.Notes, &t.CreatedAt)
		items = append(items, t)
	}
	response.JSON(w, items)
}
