package admin

import (
	"net/http"

	"mfgops/internal/models"
	"mfgops/internal/response"
)

// Dashboard handles GET /api/v1/dashboard. Counts are computed live,
// nothing is cached.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var d models.DashboardData

	h.DB.QueryRow("SELECT COUNT(*) FROM products").Scan(&d.Products)
	h.DB.QueryRow("SELECT COUNT(*) FROM customers").Scan(&d.Customers)
	h.DB.QueryRow("SELECT COUNT(*) FROM suppliers WHERE status='active'").Scan(&d.Suppliers)
	h.DB.QueryRow("SELECT COUNT(*) FROM customer_orders WHERE status NOT IN ('delivered','cancelled')").Scan(&d.OpenCustomerOrders)
	h.DB.QueryRow("SELECT COUNT(*) FROM production_orders WHERE status IN ('pending','in_progress')").Scan(&d.OpenProductionOrders)
	h.DB.QueryRow("SELECT COUNT(*) FROM purchase_orders WHERE status IN ('draft','sent','confirmed')").Scan(&d.OpenPurchaseOrders)
	h.DB.QueryRow("SELECT COUNT(*) FROM products WHERE current_stock < minimum_stock_level").Scan(&d.LowStockProducts)
	h.DB.QueryRow("SELECT COUNT(*) FROM quality_checks WHERE result='pending'").Scan(&d.PendingQualityChecks)
	h.DB.QueryRow("SELECT COALESCE(SUM(total_amount),0) FROM customer_orders WHERE status NOT IN ('delivered','cancelled')").Scan(&d.OpenOrderValue)
	h.DB.QueryRow("SELECT COUNT(*) FROM notifications WHERE read=0").Scan(&d.UnreadNotifications)
	h.DB.QueryRow("SELECT COUNT(*) FROM work_centers WHERE status='active'").Scan(&d.ActiveWorkCenters)
	h.DB.QueryRow("SELECT COUNT(*) FROM production_orders WHERE status IN ('pending','in_progress') AND due_date != '' AND due_date < date('now')").Scan(&d.OverdueProductionCount)

	response.JSON(w, d)
}

// ListAuditLog handles GET /api/v1/audit-log. Returns the most recent
// entries, newest first.
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	module := r.URL.Query().Get("module")

	query := "SELECT id,username,action,module,COALESCE(record_id,''),COALESCE(summary,''),created_at FROM audit_log"
	var args []interface{}
	if module != "" {
		query += " WHERE module=?"
		args = append(args, module)
	}
	query += " ORDER BY id DESC LIMIT 200"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.CreatedAt)
		items = append(items, e)
	}
	if items == nil {
		items = []models.AuditEntry{}
	}
	response.JSON(w, items)
}
