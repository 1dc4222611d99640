package sales

import (
	"net/http/httptest"
	"testing"

	"mfgops/internal/models"
	"mfgops/internal/testutil"
)

func TestCreateCustomerAssignsSequentialID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.CreateCustomer(w, testutil.AuthedJSONRequest("POST", "/api/v1/customers",
		map[string]string{"name": "Acme Corp", "email": "orders@acme.example"}, ""))
	testutil.AssertStatus(t, w, 200)

	var c models.Customer
	testutil.DecodeEnvelope(t, w, &c)
	if c.ID != "CUST-001" {
		t.Errorf("id = %q, want CUST-001", c.ID)
	}

	w = httptest.NewRecorder()
	h.CreateCustomer(w, testutil.AuthedJSONRequest("POST", "/api/v1/customers",
		map[string]string{"name": "Globex"}, ""))
	testutil.AssertStatus(t, w, 200)
	testutil.DecodeEnvelope(t, w, &c)
	if c.ID != "CUST-002" {
		t.Errorf("id = %q, want CUST-002", c.ID)
	}
}

func TestCreateCustomerRequiresName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.CreateCustomer(w, testutil.AuthedJSONRequest("POST", "/api/v1/customers",
		map[string]string{"email": "nobody@example.com"}, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestCreateCustomerRejectsBadEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.CreateCustomer(w, testutil.AuthedJSONRequest("POST", "/api/v1/customers",
		map[string]string{"name": "Acme", "email": "not-an-email"}, ""))
	testutil.AssertStatus(t, w, 400)
}

func TestDeleteCustomerBlockedByOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedCustomer(t, db, "CUST-001", "Acme")
	db.Exec(`INSERT INTO customer_orders (id,customer_id,order_date,required_date,status,total_amount)
		VALUES ('CO-2026-0001','CUST-001','2026-01-01','2026-02-01','pending',10)`)
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.DeleteCustomer(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), "CUST-001")
	testutil.AssertStatus(t, w, 409)

	var count int
	db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&count)
	if count != 1 {
		t.Errorf("customers = %d, want 1 (delete blocked)", count)
	}
}

func TestDeleteCustomerWithoutOrders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedCustomer(t, db, "CUST-001", "Acme")
	h := newHandler(db)

	w := httptest.NewRecorder()
	h.DeleteCustomer(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), "CUST-001")
	testutil.AssertStatus(t, w, 200)

	w = httptest.NewRecorder()
	h.DeleteCustomer(w, testutil.AuthedRequest("DELETE", "/x", nil, ""), "CUST-001")
	testutil.AssertStatus(t, w, 404)
}
