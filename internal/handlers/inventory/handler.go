package inventory

import (
	"database/sql"

	"mfgops/internal/websocket"
)

// NextIDFunc generates a sequential ID with the given prefix and table.
type NextIDFunc func(prefix, table string, digits int) string

// Handler holds dependencies for product and stock handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub

	NextID NextIDFunc
}
