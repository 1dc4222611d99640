package quality

import (
	"net/http"
	"time"

	"mfgops/internal/audit"
	"mfgops/internal/ids"
	"mfgops/internal/models"
	"mfgops/internal/response"
	"mfgops/internal/validation"
)

// ListQualityChecks handles GET /api/v1/quality-checks.
func (h *Handler) ListQualityChecks(w http.ResponseWriter, r *http.Request) {
	result := r.URL.Query().Get("result")
	po := r.URL.Query().Get("production_order_id")

	query := "SELECT id,production_order_id,inspector_id,check_date,result,defects_found,COALESCE(notes,''),created_at FROM quality_checks WHERE 1=1"
	var args []interface{}
	if result != "" {
		query += " AND result=?"
		args = append(args, result)
	}
	if po != "" {
		query += " AND production_order_id=?"
		args = append(args, po)
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.QualityCheck
	for rows.Next() {
		var qc models.QualityCheck
		rows.Scan(&qc.ID, &qc.ProductionOrderID, &qc.InspectorID, &qc.CheckDate, &qc.Result, &qc.DefectsFound, &qc.Notes, &qc.CreatedAt)
		items = append(items, qc)
	}
	if items == nil {
		items = []models.QualityCheck{}
	}
	response.JSON(w, items)
}

// GetQualityCheck handles GET /api/v1/quality-checks/:id.
func (h *Handler) GetQualityCheck(w http.ResponseWriter, r *http.Request, id string) {
	var qc models.QualityCheck
	err := h.DB.QueryRow("SELECT id,production_order_id,inspector_id,check_date,result,defects_found,COALESCE(notes,''),created_at FROM quality_checks WHERE id=?", id).
		Scan(&qc.ID, &qc.ProductionOrderID, &qc.InspectorID, &qc.CheckDate, &qc.Result, &qc.DefectsFound, &qc.Notes, &qc.CreatedAt)
	if err != nil {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, qc)
}

// CreateQualityCheck handles POST /api/v1/quality-checks. The check must
// reference an existing production order and an active inspector.
func (h *Handler) CreateQualityCheck(w http.ResponseWriter, r *http.Request) {
	var qc models.QualityCheck
	if err := response.DecodeBody(r, &qc); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "production_order_id", qc.ProductionOrderID)
	validation.RequireField(ve, "inspector_id", qc.InspectorID)
	validation.RequireField(ve, "check_date", qc.CheckDate)
	validation.ValidateDate(ve, "check_date", qc.CheckDate)
	validation.ValidateEnum(ve, "result", qc.Result, validation.ValidQualityCheckResults)
	validation.ValidateNonNegativeInt(ve, "defects_found", qc.DefectsFound)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var exists int
	h.DB.QueryRow("SELECT COUNT(*) FROM production_orders WHERE id=?", qc.ProductionOrderID).Scan(&exists)
	if exists == 0 {
		response.Err(w, "production order not found", 404)
		return
	}
	var insStatus string
	if err := h.DB.QueryRow("SELECT status FROM inspectors WHERE id=?", qc.InspectorID).Scan(&insStatus); err != nil {
		response.Err(w, "inspector not found", 404)
		return
	}
	if insStatus != "active" {
		response.Err(w, "inspector is not active", 400)
		return
	}

	if qc.Result == "" {
		qc.Result = "pending"
	}
	now := time.Now().Format(datetimeFormat)

	var err error
	for attempt := 0; ; attempt++ {
		qc.ID = h.NextID("QC", "quality_checks", 4)
		_, err = h.DB.Exec("INSERT INTO quality_checks (id,production_order_id,inspector_id,check_date,result,defects_found,notes,created_at) VALUES (?,?,?,?,?,?,?,?)",
			qc.ID, qc.ProductionOrderID, qc.InspectorID, qc.CheckDate, qc.Result, qc.DefectsFound, qc.Notes, now)
		if err != nil {
			if ids.IsUniqueViolation(err) && attempt < 4 {
				continue
			}
			response.Err(w, err.Error(), 500)
			return
		}
		break
	}

	qc.CreatedAt = now
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "created", "quality_check", qc.ID, "Created "+qc.ID+" for "+qc.ProductionOrderID)
	h.Hub.BroadcastChange("quality_check", qc.ID, "created")
	response.JSON(w, qc)
}

// UpdateQualityCheckResult handles PUT /api/v1/quality-checks/:id/result.
// A recorded pass or fail is final.
func (h *Handler) UpdateQualityCheckResult(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Result       string `json:"result"`
		DefectsFound int    `json:"defects_found"`
		Notes        string `json:"notes"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "result", req.Result)
	validation.ValidateEnum(ve, "result", req.Result, validation.ValidQualityCheckResults)
	validation.ValidateNonNegativeInt(ve, "defects_found", req.DefectsFound)
	if req.Result == "pending" {
		ve.Add("result", "must be pass or fail")
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), 400)
		return
	}

	var current string
	if err := h.DB.QueryRow("SELECT result FROM quality_checks WHERE id=?", id).Scan(&current); err != nil {
		response.Err(w, "not found", 404)
		return
	}
	if current != "pending" {
		response.Err(w, "result already recorded", 400)
		return
	}

	if _, err := h.DB.Exec("UPDATE quality_checks SET result=?,defects_found=?,notes=? WHERE id=?",
		req.Result, req.DefectsFound, req.Notes, id); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	username := audit.GetUsername(h.DB, r)
	audit.LogAudit(h.DB, h.Hub, username, "updated", "quality_check", id, "Result recorded: "+req.Result)
	h.Hub.BroadcastChange("quality_check", id, "updated")
	h.GetQualityCheck(w, r, id)
}
