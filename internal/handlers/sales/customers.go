package sales

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// ListCustomers handles GET /api/v1/customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	query := "SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers"
	var args []interface{}
	if search != "" {
		query += " WHERE name LIKE ? OR email LIKE ?"
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	query += " ORDER BY id"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Customer
	for rows.Next() {
		var c models.Customer
		rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
		items = append(items, c)
	}
	if items == nil {
		items = []models.Customer{}
	}
	response.JSON(w, items)
}

// GetCustomer handles GET /api/v1/customers/:id.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c models.Customer
	err := h.DB.QueryRow("SELECT id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(address,''),COALESCE(notes,''),created_at FROM customers WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, c)
}

// CreateCustomer handles POST /api/v1/customers.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c models.Customer
	if err := response.DecodeBody(r, &c); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", c.Name)
	validation.ValidateEmail(ve, "email", c.Email)
	validation.ValidateMaxLength(ve, "name", c.Name, 200)
	validation.ValidateMaxLength(ve, "notes", c.Notes, validation.MaxStringLength)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	c.ID = h.NextSimpleID("CUST", "customers", 3)
	now := time.Now().Format(datetimeFormat)
	_, err := h.DB.Exec("INSERT INTO customers (id,name,email,phone,address,notes,created_at) VALUES (?,?,?,?,?,?,?)",
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	c.CreatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "customer", c.ID, "Created "+c.ID+" "+c.Name)
	response.JSON(w, c)
}

// UpdateCustomer handles PUT /api/v1/customers/:id.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var c models.Customer
	if err := response.DecodeBody(r, &c); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", c.Name)
	validation.ValidateEmail(ve, "email", c.Email)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec("UPDATE customers SET name=?,email=?,phone=?,address=?,notes=? WHERE id=?",
		c.Name, c.Email, c.Phone, c.Address, c.Notes, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "customer", id, "Updated "+id)
	h.GetCustomer(w, r, id)
}

// DeleteCustomer handles DELETE /api/v1/customers/:id. Customers with
// orders on file cannot be removed.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request, id string) {
	var orders int
	h.DB.QueryRow("SELECT COUNT(*) FROM customer_orders WHERE customer_id=?", id).Scan(&orders)
	if orders > 0 {
		response.Err(w, "customer has orders and cannot be deleted", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM customers WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "customer", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
