package sales

import (
	"database/sql"
	"fmt"

	"mfgops/internal/models"
)

// Shortfall reasons reported by CheckStockLevels.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonBelowMinimum      = "below_minimum"
)

// LineInput is one requested order line for the sufficiency check.
type LineInput struct {
	ProductID string
	Quantity  int
}

// CheckStockLevels evaluates each requested line against current product
// stock and returns one StockShortfall per line that cannot be satisfied
// without restocking, in input order:
//
//   - stock after the order would go negative: insufficient_stock, with
//     required_quantity equal to the shortfall needed to bring stock back
//     to zero;
//   - stock after the order would fall below the product's minimum level:
//     below_minimum, with required_quantity equal to the amount needed to
//     restore the minimum.
//
// The required quantity deliberately ignores lead time and any safety
// margin beyond the minimum level; restock sizing beyond that is a
// purchasing decision, not an order-entry one.
//
// Lines are evaluated independently against the same stock snapshot:
// callers must pre-aggregate quantities per product, duplicate product ids
// are NOT summed before comparison. An unknown product id is an error, not
// a silent skip.
func CheckStockLevels(db *sql.DB, lines []LineInput) ([]models.StockShortfall, error) {
	shortfalls := []models.StockShortfall{}
	for _, line := range lines {
		var currentStock, minimumLevel int
		err := db.QueryRow("SELECT current_stock, minimum_stock_level FROM products WHERE id=?", line.ProductID).
			Scan(&currentStock, &minimumLevel)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s not found", line.ProductID)
		}
		if err != nil {
			return nil, err
		}

		stockAfter := currentStock - line.Quantity
		switch {
		case stockAfter < 0:
			shortfalls = append(shortfalls, models.StockShortfall{
				ProductID:        line.ProductID,
				Reason:           ReasonInsufficientStock,
				RequiredQuantity: -stockAfter,
			})
		case stockAfter < minimumLevel:
			shortfalls = append(shortfalls, models.StockShortfall{
				ProductID:        line.ProductID,
				Reason:           ReasonBelowMinimum,
				RequiredQuantity: minimumLevel - stockAfter,
			})
		}
	}
	return shortfalls, nil
}
