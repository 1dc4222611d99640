package admin

import (
	"database/sql"

	"mfgops/internal/websocket"
)

// Handler holds dependencies for dashboard, notification, user and
// audit-log handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}
