package manufacturing

import (
	"net/http"
	"strconv"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// GetBOM handles GET /api/v1/products/:id/bom.
func (h *Handler) GetBOM(w http.ResponseWriter, r *http.Request, productID string) {
	var exists int
	h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", productID).Scan(&exists)
	if exists == 0 {
		response.Err(w, "product not found", 404)
		return
	}

	rows, err := h.DB.Query("SELECT id,product_id,component_id,qty_per_unit,COALESCE(unit,'ea') FROM bom_lines WHERE product_id=? ORDER BY id", productID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	items := []models.BOMLine{}
	for rows.Next() {
		var b models.BOMLine
		rows.Scan(&b.ID, &b.ProductID, &b.ComponentID, &b.QtyPerUnit, &b.Unit)
		items = append(items, b)
	}
	response.JSON(w, items)
}

// AddBOMLine handles POST /api/v1/products/:id/bom. A product cannot appear
// on its own BOM, and a component appears at most once per product.
func (h *Handler) AddBOMLine(w http.ResponseWriter, r *http.Request, productID string) {
	var b models.BOMLine
	if err := response.DecodeBody(r, &b); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	b.ProductID = productID

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "component_id", b.ComponentID)
	validation.ValidatePositiveFloat(ve, "qty_per_unit", b.QtyPerUnit)
	if b.ComponentID == productID {
		ve.Add("component_id", "a product cannot be a component of itself")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	for _, id := range []string{productID, b.ComponentID} {
		var exists int
		h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE id=?", id).Scan(&exists)
		if exists == 0 {
			response.Err(w, "product "+id+" not found", 404)
			return
		}
	}

	if b.Unit == "" {
		b.Unit = "ea"
	}
	res, err := h.DB.Exec("INSERT INTO bom_lines (product_id,component_id,qty_per_unit,unit) VALUES (?,?,?,?)",
		b.ProductID, b.ComponentID, b.QtyPerUnit, b.Unit)
	if err != nil {
		// UNIQUE(product_id, component_id)
		response.Err(w, "component already on BOM", 409)
		return
	}
	lineID, _ := res.LastInsertId()
	b.ID = int(lineID)
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "bom", productID, "Added "+b.ComponentID+" to BOM of "+productID)
	response.JSON(w, b)
}

// RemoveBOMLine handles DELETE /api/v1/products/:id/bom/:lineID.
func (h *Handler) RemoveBOMLine(w http.ResponseWriter, r *http.Request, productID, lineID string) {
	n, err := strconv.Atoi(lineID)
	if err != nil {
		response.Err(w, "invalid BOM line id", 400)
		return
	}
	res, err := h.DB.Exec("DELETE FROM bom_lines WHERE id=? AND product_id=?", n, productID)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "bom", productID, "Removed BOM line "+lineID)
	response.JSON(w, map[string]string{"status": "deleted"})
}
