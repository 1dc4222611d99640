package sales

import (
	"database/sql"

	"mfgops/internal/websocket"
)

// NextIDFunc generates a sequential ID with the given prefix and table.
type NextIDFunc func(prefix, table string, digits int) string

// Handler holds dependencies for customer and customer-order handlers.
type Handler struct {
	DB  *sql.DB
	Hub *websocket.Hub

	// NextID allocates year-scoped ids (CO-2025-0001); NextSimpleID
	// allocates plain ids (CUST-001). Both are injected by the root
	// package so tests can bind them to a throwaway database.
	NextID       NextIDFunc
	NextSimpleID NextIDFunc
}
