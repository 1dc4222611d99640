package procurement

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

const datetimeFormat = "2006-01-02 15:04:05"

// ListSuppliers handles GET /api/v1/suppliers.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	query := "SELECT id,name,COALESCE(contact_name,''),COALESCE(contact_email,''),COALESCE(contact_phone,''),COALESCE(address,''),lead_time_days,status,COALESCE(notes,''),created_at FROM suppliers"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY id"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Supplier
	for rows.Next() {
		var s models.Supplier
		rows.Scan(&s.ID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.LeadTimeDays, &s.Status, &s.Notes, &s.CreatedAt)
		items = append(items, s)
	}
	if items == nil {
		items = []models.Supplier{}
	}
	response.JSON(w, items)
}

// GetSupplier handles GET /api/v1/suppliers/:id.
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s models.Supplier
	err := h.DB.QueryRow("SELECT id,name,COALESCE(contact_name,''),COALESCE(contact_email,''),COALESCE(contact_phone,''),COALESCE(address,''),lead_time_days,status,COALESCE(notes,''),created_at FROM suppliers WHERE id=?", id).
		Scan(&s.ID, &s.Name, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.Address, &s.LeadTimeDays, &s.Status, &s.Notes, &s.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, s)
}

// CreateSupplier handles POST /api/v1/suppliers.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var s models.Supplier
	if err := response.DecodeBody(r, &s); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", s.Name)
	validation.ValidateEmail(ve, "contact_email", s.ContactEmail)
	validation.ValidateEnum(ve, "status", s.Status, validation.ValidSupplierStatuses)
	validation.ValidateNonNegativeInt(ve, "lead_time_days", s.LeadTimeDays)
	if s.LeadTimeDays > validation.MaxLeadTimeDays {
		ve.Add("lead_time_days", "exceeds maximum lead time")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	s.ID = h.NextSimpleID("SUP", "suppliers", 3)
	if s.Status == "" {
		s.Status = "active"
	}
	now := time.Now().Format(datetimeFormat)
	_, err := h.DB.Exec("INSERT INTO suppliers (id,name,contact_name,contact_email,contact_phone,address,lead_time_days,status,notes,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		s.ID, s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.LeadTimeDays, s.Status, s.Notes, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	s.CreatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "supplier", s.ID, "Created "+s.ID+" "+s.Name)
	response.JSON(w, s)
}

// UpdateSupplier handles PUT /api/v1/suppliers/:id.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var s models.Supplier
	if err := response.DecodeBody(r, &s); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", s.Name)
	validation.ValidateEmail(ve, "contact_email", s.ContactEmail)
	validation.ValidateEnum(ve, "status", s.Status, validation.ValidSupplierStatuses)
	validation.ValidateNonNegativeInt(ve, "lead_time_days", s.LeadTimeDays)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec("UPDATE suppliers SET name=?,contact_name=?,contact_email=?,contact_phone=?,address=?,lead_time_days=?,status=?,notes=? WHERE id=?",
		s.Name, s.ContactName, s.ContactEmail, s.ContactPhone, s.Address, s.LeadTimeDays, s.Status, s.Notes, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "supplier", id, "Updated "+id)
	h.GetSupplier(w, r, id)
}

// DeleteSupplier handles DELETE /api/v1/suppliers/:id. Suppliers with
// purchase orders on file cannot be removed.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request, id string) {
	var pos int
	h.DB.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE supplier_id=?", id).Scan(&pos)
	if pos > 0 {
		response.Err(w, "supplier has purchase orders and cannot be deleted", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM suppliers WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "supplier", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
