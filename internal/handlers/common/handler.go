package common

import (
	"database/sql"
	"fmt"
	"net/http"

	"mfgops/internal/audit"
	"mfgops/internal/websocket"
)

// Handler holds dependencies for cross-module handlers such as exports.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub
}

// LogDataExport records an export event in the audit log.
func (h *Handler) LogDataExport(r *http.Request, module, format string, recordCount int) {
	username := audit.GetUsername(h.DB, r)
	summary := fmt.Sprintf("Exported %d %s records as %s", recordCount, module, format)
	audit.LogAudit(h.DB, h.Hub, username, "exported", module, "", summary)
}
