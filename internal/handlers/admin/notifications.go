package admin

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"mfgops/internal/models"
	"mfgops/internal/response"
)

// ListNotifications handles GET /api/v1/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	query := "SELECT id,type,title,COALESCE(message,''),read,created_at FROM notifications"
	var args []interface{}
	if r.URL.Query().Get("unread") == "true" {
		query += " WHERE read=0"
	}
	query += " ORDER BY id DESC LIMIT 100"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	defer rows.Close()
	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
		items = append(items, n)
	}
	if items == nil {
		items = []models.Notification{}
	}
	response.JSON(w, items)
}

// MarkNotificationRead handles PUT /api/v1/notifications/:id/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request, id string) {
	nid, err := strconv.Atoi(id)
	if err != nil {
		response.Err(w, "invalid notification id", 400)
		return
	}
	res, err := h.DB.Exec("UPDATE notifications SET read=1 WHERE id=?", nid)
	if err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		response.Err(w, "not found", 404)
		return
	}
	response.JSON(w, map[string]string{"status": "ok"})
}

// MarkAllNotificationsRead handles PUT /api/v1/notifications/read-all.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if _, err := h.DB.Exec("UPDATE notifications SET read=1 WHERE read=0"); err != nil {
		response.Err(w, err.Error(), 500)
		return
	}
	response.JSON(w, map[string]string{"status": "ok"})
}

// RefreshNotifications handles POST /api/v1/notifications/refresh.
func (h *Handler) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	created := h.Generate()
	response.JSON(w, map[string]int{"created": created})
}

// Generate runs one notification sweep and returns how many
// notifications were inserted.
func (h *Handler) Generate() int {
	created := 0

	rows, err := h.DB.Query("SELECT id,name,current_stock,minimum_stock_level FROM products WHERE current_stock < minimum_stock_level")
	if err != nil {
		log.Printf("notification sweep: %v", err)
		return 0
	}
	type lowStock struct {
		id, name   string
		stock, min int
	}
	var low []lowStock
	for rows.Next() {
		var ls lowStock
		rows.Scan(&ls.id, &ls.name, &ls.stock, &ls.min)
		low = append(low, ls)
	}
	rows.Close()

	for _, ls := range low {
		title := "Low stock: " + ls.id
		if h.hasUnread("low_stock", title) {
			continue
		}
		msg := fmt.Sprintf("%s (%s) is at %d, below minimum %d", ls.name, ls.id, ls.stock, ls.min)
		if h.insertNotification("low_stock", title, msg) {
			created++
		}
	}

	rows, err = h.DB.Query("SELECT id,product_id,due_date FROM production_orders WHERE status IN ('pending','in_progress') AND due_date != '' AND due_date < date('now')")
	if err != nil {
		log.Printf("notification sweep: %v", err)
		return created
	}
	type overdue struct {
		id, productID, due string
	}
	var late []overdue
	for rows.Next() {
		var o overdue
		rows.Scan(&o.id, &o.productID, &o.due)
		late = append(late, o)
	}
	rows.Close()

	for _, o := range late {
		title := "Overdue production order: " + o.id
		if h.hasUnread("overdue_production", title) {
			continue
		}
		msg := fmt.Sprintf("%s for %s was due %s", o.id, o.productID, o.due)
		if h.insertNotification("overdue_production", title, msg) {
			created++
		}
	}

	return created
}

func (h *Handler) hasUnread(ntype, title string) bool {
	var n int
	h.DB.QueryRow("SELECT COUNT(*) FROM notifications WHERE type=? AND title=? AND read=0", ntype, title).Scan(&n)
	return n > 0
}

func (h *Handler) insertNotification(ntype, title, message string) bool {
	res, err := h.DB.Exec("INSERT INTO notifications (type,title,message) VALUES (?,?,?)", ntype, title, message)
	if err != nil {
		log.Printf("insert notification: %v", err)
		return false
	}
	id, _ := res.LastInsertId()
	h.Hub.BroadcastChange("notification", id, "created")
	return true
}
