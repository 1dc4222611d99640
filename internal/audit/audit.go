package audit

import (
	"database/sql"
	"log"
	"net/http"

	"mfgops/internal/websocket"
)

// SessionCookie is the name of the session cookie checked by GetUsername.
const SessionCookie = "mfgops_session"

// LogAudit records an audit_log row and broadcasts the change to connected
// dashboard clients. Audit failures are logged, never surfaced.
func LogAudit(db *sql.DB, hub *websocket.Hub, username, action, module, recordID, summary string) {
	_, err := db.Exec("INSERT INTO audit_log (username, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		username, action, module, recordID, summary)
	if err != nil {
		log.Printf("audit log error: %v", err)
	}
	if hub != nil {
		hub.Broadcast(websocket.Event{
			Type:   module + "_" + action,
			ID:     recordID,
			Action: action,
		})
	}
}

// GetUsername extracts the username from a session cookie, falling back to
// "system" for unauthenticated or background callers.
func GetUsername(db *sql.DB, r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "system"
	}
	var username string
	err = db.QueryRow("SELECT u.username FROM users u JOIN sessions s ON u.id = s.user_id WHERE s.token = ?", cookie.Value).Scan(&username)
	if err != nil {
		return "system"
	}
	return username
}
