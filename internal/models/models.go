package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

type Product struct {
	ID                string  `json:"id"`
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	ProductType       string  `json:"product_type"`
	CurrentStock      int     `json:"current_stock"`
	MinimumStockLevel int     `json:"minimum_stock_level"`
	LeadTimeDays      int     `json:"lead_time_days"`
	UnitPrice         float64 `json:"unit_price"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`

	// BOM is populated on single-product reads.
	BOM []BOMLine `json:"bom,omitempty"`
}

type InventoryTransaction struct {
	ID        int    `json:"id"`
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
	Qty       int    `json:"qty"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type Customer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
}

type CustomerOrder struct {
	ID           string  `json:"id"`
	CustomerID   string  `json:"customer_id"`
	OrderDate    string  `json:"order_date"`
	RequiredDate string  `json:"required_date"`
	Status       string  `json:"status"`
	TotalAmount  float64 `json:"total_amount"`
	Notes        string  `json:"notes"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`

	Lines []OrderLine `json:"lines,omitempty"`
	// ProductionOrders is populated on single-order reads.
	ProductionOrders []ProductionOrder `json:"production_orders,omitempty"`
}

type OrderLine struct {
	ID              int     `json:"id"`
	CustomerOrderID string  `json:"customer_order_id"`
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	Status          string  `json:"status"`
}

// StockShortfall is one flagged line from the stock sufficiency check.
type StockShortfall struct {
	ProductID        string `json:"product_id"`
	Reason           string `json:"reason"`
	RequiredQuantity int    `json:"required_quantity"`
}

// GenerationResult reports the outcome of one automatic production-order
// creation attempt so callers can see partial success.
type GenerationResult struct {
	ProductID         string `json:"product_id"`
	Status            string `json:"status"`
	ProductionOrderID string `json:"production_order_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

type ProductionOrder struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	StartDate       string  `json:"start_date"`
	DueDate         string  `json:"due_date"`
	Priority        string  `json:"priority"`
	Status          string  `json:"status"`
	CustomerOrderID *string `json:"customer_order_id"`
	Notes           string  `json:"notes"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`

	Operations []Operation `json:"operations,omitempty"`
}

type Operation struct {
	ID                int     `json:"id"`
	ProductionOrderID string  `json:"production_order_id"`
	WorkCenterID      string  `json:"work_center_id"`
	Description       string  `json:"description"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	Cost              float64 `json:"cost"`
	Status            string  `json:"status"`
}

type WorkCenter struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	HourlyRate  float64 `json:"hourly_rate"`
	CreatedAt   string  `json:"created_at"`
}

type Supplier struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	LeadTimeDays int    `json:"lead_time_days"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
	CreatedAt    string `json:"created_at"`
}

type PurchaseOrder struct {
	ID           string  `json:"id"`
	SupplierID   string  `json:"supplier_id"`
	Status       string  `json:"status"`
	ExpectedDate string  `json:"expected_date"`
	Total        float64 `json:"total"`
	Notes        string  `json:"notes"`
	CreatedBy    string  `json:"created_by"`
	CreatedAt    string  `json:"created_at"`
	ReceivedAt   *string `json:"received_at"`

	Lines []POLine `json:"lines,omitempty"`
}

type POLine struct {
	ID              int     `json:"id"`
	PurchaseOrderID string  `json:"purchase_order_id"`
	ProductID       string  `json:"product_id"`
	Qty             int     `json:"qty"`
	UnitPrice       float64 `json:"unit_price"`
}

type BOMLine struct {
	ID          int     `json:"id"`
	ProductID   string  `json:"product_id"`
	ComponentID string  `json:"component_id"`
	QtyPerUnit  float64 `json:"qty_per_unit"`
	Unit        string  `json:"unit"`
}

type Inspector struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Certification string `json:"certification"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type QualityCheck struct {
	ID                string `json:"id"`
	ProductionOrderID string `json:"production_order_id"`
	InspectorID       string `json:"inspector_id"`
	CheckDate         string `json:"check_date"`
	Result            string `json:"result"`
	DefectsFound      int    `json:"defects_found"`
	Notes             string `json:"notes"`
	CreatedAt         string `json:"created_at"`
}

type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
	LastLogin   string `json:"last_login,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type Notification struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type AuditEntry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	CreatedAt string `json:"created_at"`
}

type DashboardData struct {
	Products               int     `json:"products"`
	Customers              int     `json:"customers"`
	Suppliers              int     `json:"suppliers"`
	OpenCustomerOrders     int     `json:"open_customer_orders"`
	OpenProductionOrders   int     `json:"open_production_orders"`
	OpenPurchaseOrders     int     `json:"open_purchase_orders"`
	LowStockProducts       int     `json:"low_stock_products"`
	PendingQualityChecks   int     `json:"pending_quality_checks"`
	OpenOrderValue         float64 `json:"open_order_value"`
	UnreadNotifications    int     `json:"unread_notifications"`
	ActiveWorkCenters      int     `json:"active_work_centers"`
	OverdueProductionCount int     `json:"overdue_production_orders"`
}
