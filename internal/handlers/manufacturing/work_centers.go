package manufacturing

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// ListWorkCenters handles GET /api/v1/work-centers.
func (h *Handler) ListWorkCenters(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	query := "SELECT id,name,COALESCE(description,''),status,hourly_rate,created_at FROM work_centers"
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
	var items []models.WorkCenter
	for rows.Next() {
		var wc models.WorkCenter
		rows.Scan(&wc.ID, &wc.Name, &wc.Description, &wc.Status, &wc.HourlyRate, &wc.CreatedAt)
		items = append(items, wc)
	}
	if items == nil {
		items = []models.WorkCenter{}
	}
	response.JSON(w, items)
}

// GetWorkCenter handles GET /api/v1/work-centers/:id.
func (h *Handler) GetWorkCenter(w http.ResponseWriter, r *http.Request, id string) {
	var wc models.WorkCenter
	err := h.DB.QueryRow("SELECT id,name,COALESCE(description,''),status,hourly_rate,created_at FROM work_centers WHERE id=?", id).
		Scan(&wc.ID, &wc.Name, &wc.Description, &wc.Status, &wc.HourlyRate, &wc.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, wc)
}

// CreateWorkCenter handles POST /api/v1/work-centers.
func (h *Handler) CreateWorkCenter(w http.ResponseWriter, r *http.Request) {
	var wc models.WorkCenter
	if err := response.DecodeBody(r, &wc); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", wc.Name)
	validation.ValidateEnum(ve, "status", wc.Status, validation.ValidWorkCenterStatuses)
	validation.ValidateNonNegativeFloat(ve, "hourly_rate", wc.HourlyRate)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	wc.ID = h.NextSimpleID("WC", "work_centers", 3)
	if wc.Status == "" {
		wc.Status = "active"
	}
	now := time.Now().Format(datetimeFormat)
	_, err := h.DB.Exec("INSERT INTO work_centers (id,name,description,status,hourly_rate,created_at) VALUES (?,?,?,?,?,?)",
		wc.ID, wc.Name, wc.Description, wc.Status, wc.HourlyRate, now)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	wc.CreatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "work_center", wc.ID, "Created "+wc.ID+" "+wc.Name)
	response.JSON(w, wc)
}

// UpdateWorkCenter handles PUT /api/v1/work-centers/:id.
func (h *Handler) UpdateWorkCenter(w http.ResponseWriter, r *http.Request, id string) {
	var wc models.WorkCenter
	if err := response.DecodeBody(r, &wc); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "name", wc.Name)
	validation.ValidateEnum(ve, "status", wc.Status, validation.ValidWorkCenterStatuses)
	validation.ValidateNonNegativeFloat(ve, "hourly_rate", wc.HourlyRate)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	res, err := h.DB.Exec("UPDATE work_centers SET name=?,description=?,status=?,hourly_rate=? WHERE id=?",
		wc.Name, wc.Description, wc.Status, wc.HourlyRate, id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "work_center", id, "Updated "+id)
	h.GetWorkCenter(w, r, id)
}

// DeleteWorkCenter handles DELETE /api/v1/work-centers/:id. Work centers
// with operations on file cannot be removed.
func (h *Handler) DeleteWorkCenter(w http.ResponseWriter, r *http.Request, id string) {
	var ops int
	h.DB.QueryRow("SELECT COUNT(*) FROM operations WHERE work_center_id=?", id).Scan(&ops)
	if ops > 0 {
		response.Err(w, "work center has operations and cannot be deleted", 409)
		return
	}
	res, err := h.DB.Exec("DELETE FROM work_centers WHERE id=?", id)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "deleted", "work_center", id, "Deleted "+id)
	response.JSON(w, map[string]string{"status": "deleted"})
}
