package sales

import (
	"testing"

	"mfgops/internal/testutil"
)

func TestCheckStockLevelsInsufficientStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 10, 0, 5)

	shortfalls, err := CheckStockLevels(db, []LineInput{{ProductID: "P-2025-0001", Quantity: 15}})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 1 {
		t.Fatalf("got %d shortfalls, want 1", len(shortfalls))
	}
	sf := shortfalls[0]
	if sf.Reason != ReasonInsufficientStock {
		t.Errorf("reason = %q, want %q", sf.Reason, ReasonInsufficientStock)
	}
	if sf.RequiredQuantity != 5 {
		t.Errorf("required quantity = %d, want 5", sf.RequiredQuantity)
	}
}

func TestCheckStockLevelsBelowMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 50, 40, 5)

	shortfalls, err := CheckStockLevels(db, []LineInput{{ProductID: "P-2025-0001", Quantity: 20}})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 1 {
		t.Fatalf("got %d shortfalls, want 1", len(shortfalls))
	}
	sf := shortfalls[0]
	if sf.Reason != ReasonBelowMinimum {
		t.Errorf("reason = %q, want %q", sf.Reason, ReasonBelowMinimum)
	}
	if sf.RequiredQuantity != 10 {
		t.Errorf("required quantity = %d, want 10", sf.RequiredQuantity)
	}
}

func TestCheckStockLevelsSufficient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 100, 10, 5)

	shortfalls, err := CheckStockLevels(db, []LineInput{{ProductID: "P-2025-0001", Quantity: 20}})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 0 {
		t.Errorf("got %d shortfalls, want 0: %+v", len(shortfalls), shortfalls)
	}
}

func TestCheckStockLevelsExactlyAtMinimum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 30, 10, 5)

	// stockAfter == minimum is not a shortfall.
	shortfalls, err := CheckStockLevels(db, []LineInput{{ProductID: "P-2025-0001", Quantity: 20}})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 0 {
		t.Errorf("got %d shortfalls, want 0: %+v", len(shortfalls), shortfalls)
	}
}

func TestCheckStockLevelsUnknownProduct(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := CheckStockLevels(db, []LineInput{{ProductID: "P-2025-9999", Quantity: 1}})
	if err == nil {
		t.Fatal("expected error for unknown product")
	}
}

func TestCheckStockLevelsPreservesInputOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 5, 0, 5)
	testutil.SeedProduct(t, db, "P-2025-0002", "SKU-2", "Gadget", "finished", 100, 2, 5)
	testutil.SeedProduct(t, db, "P-2025-0003", "SKU-3", "Gizmo", "finished", 3, 10, 5)

	shortfalls, err := CheckStockLevels(db, []LineInput{
		{ProductID: "P-2025-0003", Quantity: 1},
		{ProductID: "P-2025-0002", Quantity: 10},
		{ProductID: "P-2025-0001", Quantity: 8},
	})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 2 {
		t.Fatalf("got %d shortfalls, want 2", len(shortfalls))
	}
	if shortfalls[0].ProductID != "P-2025-0003" || shortfalls[0].Reason != ReasonBelowMinimum {
		t.Errorf("first shortfall = %+v, want P-2025-0003 below_minimum", shortfalls[0])
	}
	if shortfalls[1].ProductID != "P-2025-0001" || shortfalls[1].Reason != ReasonInsufficientStock {
		t.Errorf("second shortfall = %+v, want P-2025-0001 insufficient_stock", shortfalls[1])
	}
}

func TestCheckStockLevelsDuplicateLinesNotAggregated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "P-2025-0001", "SKU-1", "Widget", "finished", 10, 0, 5)

	// Two lines of 6 against stock 10: each line alone fits, so neither is
	// flagged. Callers wanting combined evaluation must pre-aggregate.
	shortfalls, err := CheckStockLevels(db, []LineInput{
		{ProductID: "P-2025-0001", Quantity: 6},
		{ProductID: "P-2025-0001", Quantity: 6},
	})
	if err != nil {
		t.Fatalf("CheckStockLevels: %v", err)
	}
	if len(shortfalls) != 0 {
		t.Errorf("got %d shortfalls, want 0: %+v", len(shortfalls), shortfalls)
	}
}
