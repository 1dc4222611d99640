package inventory

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

const datetimeFormat = "2006-01-02 15:04:05"

// ListProducts handles GET /api/v1/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	productType := r.URL.Query().Get("type")
	lowStock := r.URL.Query().Get("low_stock")

	query := "SELECT id,sku,name,COALESCE(description,''),product_type,current_stock,minimum_stock_level,lead_time_days,unit_price,created_at,updated_at FROM products WHERE 1=1"
	var args []interface{}
	if search != "" {
		query += " AND (sku LIKE ? OR name LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	if productType != "" {
		query += " AND product_type=?"
		args = append(args, productType)
	}
	if lowStock == "true" {
		query += " AND current_stock < minimum_stock_level"
	}
	query += " ORDER BY sku"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Product
	for rows.Next() {
		var p models.Product
		rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.ProductType, &p.CurrentStock, &p.MinimumStockLevel, &p.LeadTimeDays, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt)
		items = append(items, p)
	}
	if items == nil {
		items = []models.Product{}
	}
	response.JSON(w, items)
}

// GetProduct handles GET /api/v1/products/:id, returning the product with
// its bill of materials.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p models.Product
	err := h.DB.QueryRow("SELECT id,sku,name,COALESCE(description,''),product_type,current_stock,minimum_stock_level,lead_time_days,unit_price,created_at,updated_at FROM products WHERE id=?", id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.ProductType, &p.CurrentStock, &p.MinimumStockLevel, &p.LeadTimeDays, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}

	rows, err := h.DB.Query("SELECT id,product_id,component_id,qty_per_unit,COALESCE(unit,'ea') FROM bom_lines WHERE product_id=? ORDER BY id", id)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var b models.BOMLine
			rows.Scan(&b.ID, &b.ProductID, &b.ComponentID, &b.QtyPerUnit, &b.Unit)
			p.BOM = append(p.BOM, b)
		}
	}
	response.JSON(w, p)
}

// CreateProduct handles POST /api/v1/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "sku", p.SKU)
	validation.RequireField(ve, "name", p.Name)
	validation.ValidateEnum(ve, "product_type", p.ProductType, validation.ValidProductTypes)
	validation.ValidateNonNegativeInt(ve, "current_stock", p.CurrentStock)
	validation.ValidateNonNegativeInt(ve, "minimum_stock_level", p.MinimumStockLevel)
	validation.ValidateNonNegativeInt(ve, "lead_time_days", p.LeadTimeDays)
	if p.LeadTimeDays > validation.MaxLeadTimeDays {
		ve.Add("lead_time_days", "exceeds maximum lead time")
	}
	validation.ValidateNonNegativeFloat(ve, "unit_price", p.UnitPrice)
	validation.ValidateMaxPrice(ve, "unit_price", p.UnitPrice)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	p.ID = h.NextID("P", "products", 4)
	if p.ProductType == "" {
		p.ProductType = "finished"
	}
	now := time.Now().Format(datetimeFormat)
	_, err := h.DB.Exec("INSERT INTO products (id,sku,name,description,product_type,current_stock,minimum_stock_level,lead_time_days,unit_price,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		p.ID, p.SKU, p.Name, p.Description, p.ProductType, p.CurrentStock, p.MinimumStockLevel, p.LeadTimeDays, p.UnitPrice, now, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "product", p.ID, "Created "+p.ID+" ("+p.SKU+")")
	response.JSON(w, p)
}

// UpdateProduct handles PUT /api/v1/products/:id. Stock is not updatable
// here; stock moves only through inventory transactions.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var p models.Product
	if err := response.DecodeBody(r, &p); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "sku", p.SKU)
	validation.RequireField(ve, "name", p.Name)
	validation.ValidateEnum(ve, "product_type", p.ProductType, validation.ValidProductTypes)
	validation.ValidateNonNegativeInt(ve, "minimum_stock_level", p.MinimumStockLevel)
	validation.ValidateNonNegativeInt(ve, "lead_time_days", p.LeadTimeDays)
	validation.ValidateNonNegativeFloat(ve, "unit_price", p.UnitPrice)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	now := time.Now().Format(datetimeFormat)
	res, err := h.DB.Exec("UPDATE products SET sku=?,name=?,description=?,product_type=?,minimum_stock_level=?,lead_time_days=?,unit_price=?,updated_at=? WHERE id=?",
		p.SKU, p.Name, p.Description, p.ProductType, p.MinimumStockLevel, p.LeadTimeDays, p.UnitPrice, now, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "product", id, "Updated "+id)
	h.GetProduct(w, r, id)
}

// DeleteProduct handles DELETE /api/v1/products/:id. Products referenced by
// order lines, production orders, purchase orders, or BOMs cannot be removed.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	refs := []struct {
		table, column string
	}{
		{"customer_order_lines", "product_id"},
		{"production_orders", "product_id"},
		{"purchase_order_lines", "product_id"},
		{"bom_lines", "component_id"},
	}
	for _, ref := range refs {
		var count int
		h.DB.QueryRow("SELECT COUNT(*) FROM "+ref.table+" WHERE "+ref.column+"=?", id).Scan(&count)
		if count > 0 {
			response.Err(w, "product is referenced by "+ref.table+" and cannot be deleted", 409)
			return
		}
	}
	res, err := h.DB.Exec("DELETE FROM products WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "product", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}

// ListLowStock handles GET /api/v1/products/low-stock: products whose stock
// sits below their minimum level, with the quantity needed to restore it.
func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.DB.Query("SELECT id,sku,name,current_stock,minimum_stock_level,lead_time_days FROM products WHERE current_stock < minimum_stock_level ORDER BY sku")
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	type lowStockAlert struct {
		ID                string `json:"id"`
		SKU               string `json:"sku"`
		Name              string `json:"name"`
		CurrentStock      int    `json:"current_stock"`
		MinimumStockLevel int    `json:"minimum_stock_level"`
		LeadTimeDays      int    `json:"lead_time_days"`
		ShortBy           int    `json:"short_by"`
	}
	alerts := []lowStockAlert{}
	for rows.Next() {
		var a lowStockAlert
		rows.Scan(&a.ID, &a.SKU, &a.Name, &a.CurrentStock, &a.MinimumStockLevel, &a.LeadTimeDays)
		a.ShortBy = a.MinimumStockLevel - a.CurrentStock
		alerts = append(alerts, a)
	}
	response.JSON(w, alerts)
}
