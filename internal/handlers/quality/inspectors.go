package quality

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

const datetimeFormat = "2006-01-02 15:04:05"

// ListInspectors handles GET /api/v1/inspectors.
func (h *Handler) ListInspectors(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	query := "SELECT id,name,COALESCE(email,''),COALESCE(certification,''),status,created_at FROM inspectors"
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
	var items []models.Inspector
	for rows.Next() {
		var ins models.Inspector
		rows.Scan(&ins.ID, &ins.Name, &ins.Email, &ins.Certification, &ins.Status, &ins.CreatedAt)
		items = append(items, ins)
	}
	if items == nil {
		items = []models.Inspector{}
	}
	response.JSON(w, items)
}

// GetInspector handles GET /api/v1/inspectors/:id.
func (h *Handler) GetInspector(w http.ResponseWriter, r *http.Request, id string) {
	var ins models.Inspector
	err := h.DB.QueryRow("SELECT id,name,COALESCE(email,''),COALESCE(certification,''),status,created_at FROM inspectors WHERE id=?", id).
		Scan(&ins.ID, &ins.Name, &ins.Email, &ins.Certification, &ins.Status, &ins.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, ins)
}

// CreateInspector handles POST /api/v1/inspectors.
func (h *Handler) CreateInspector(w http.ResponseWriter, r *http.Request) {
	var ins models.Inspector
	if err := response.DecodeBody(r, &ins); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", ins.Name)
	validation.ValidateEmail(ve, "email", ins.Email)
	validation.ValidateEnum(ve, "status", ins.Status, validation.ValidInspectorStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	ins.ID = h.NextSimpleID("INSP", "inspectors", 3)
	if ins.Status == "" {
		ins.Status = "active"
	}
	now := time.Now().Format(datetimeFormat)
	_, err := h.DB.Exec("INSERT INTO inspectors (id,name,email,certification,status,created_at) VALUES (?,?,?,?,?,?)",
		ins.ID, ins.Name, ins.Email, ins.Certification, ins.Status, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	ins.CreatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "inspector", ins.ID, "Created "+ins.ID+" "+ins.Name)
	response.JSON(w, ins)
}

// UpdateInspector handles PUT /api/v1/inspectors/:id.
func (h *Handler) UpdateInspector(w http.ResponseWriter, r *http.Request, id string) {
	var ins models.Inspector
	if err := response.DecodeBody(r, &ins); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", ins.Name)
	validation.ValidateEmail(ve, "email", ins.Email)
	validation.ValidateEnum(ve, "status", ins.Status, validation.ValidInspectorStatuses)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec("UPDATE inspectors SET name=?,email=?,certification=?,status=? WHERE id=?",
		ins.Name, ins.Email, ins.Certification, ins.Status, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "inspector", id, "Updated "+id)
	h.GetInspector(w, r, id)
}
