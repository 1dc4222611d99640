package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"mfgops/internal/config"
	"mfgops/internal/handlers/admin"
	"mfgops/internal/handlers/common"
	"mfgops/internal/handlers/inventory"
	"mfgops/internal/handlers/manufacturing"
	"mfgops/internal/handlers/procurement"
	"mfgops/internal/handlers/quality"
	"mfgops/internal/handlers/sales"
	"mfgops/internal/response"
	"mfgops/internal/websocket"
)

var (
	cfg config.Config
	hub *websocket.Hub
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	var err error
	cfg, err = config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed: ", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed: ", err)
	}
	seedDB()

	hub = websocket.NewHub()

	salesH := &sales.Handler{DB: db, Hub: hub, NextID: nextID, NextSimpleID: nextSimpleID}
	inventoryH := &inventory.Handler{DB: db, Hub: hub, NextID: nextID}
	manufacturingH := &manufacturing.Handler{DB: db, Hub: hub, NextID: nextID, NextSimpleID: nextSimpleID}
	procurementH := &procurement.Handler{DB: db, Hub: hub, NextID: nextID, NextSimpleID: nextSimpleID}
	qualityH := &quality.Handler{DB: db, Hub: hub, NextID: nextID, NextSimpleID: nextSimpleID}
	adminH := &admin.Handler{DB: db, Hub: hub}
	commonH := &common.Handler{DB: db, Hub: hub}

	// Background notification sweep: once after a short delay, then on the
	// configured interval.
	go func() {
		time.Sleep(5 * time.Second)
		adminH.Generate()
		for {
			time.Sleep(cfg.NotifyInterval())
			adminH.Generate()
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		response.JSON(w, map[string]string{"service": "mfgops", "company": cfg.CompanyName})
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			response.Err(w, "database unavailable", 503)
			return
		}
		response.JSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/ws", hub.ServeWS)

	// Auth routes
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", handleMe)

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Dashboard
		case path == "dashboard" && r.Method == "GET":
			adminH.Dashboard(w, r)

		// Audit
		case path == "audit-log" && r.Method == "GET":
			adminH.ListAuditLog(w, r)

		// Customer orders
		case parts[0] == "customer-orders" && len(parts) == 1 && r.Method == "GET":
			salesH.ListCustomerOrders(w, r)
		case parts[0] == "customer-orders" && len(parts) == 1 && r.Method == "POST":
			salesH.CreateCustomerOrder(w, r)
		case parts[0] == "customer-orders" && len(parts) == 2 && r.Method == "GET":
			salesH.GetCustomerOrder(w, r, parts[1])
		case parts[0] == "customer-orders" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			salesH.UpdateCustomerOrderStatus(w, r, parts[1])
		case parts[0] == "customer-orders" && len(parts) == 2 && r.Method == "DELETE":
			salesH.DeleteCustomerOrder(w, r, parts[1])

		// Customers
		case parts[0] == "customers" && len(parts) == 1 && r.Method == "GET":
			salesH.ListCustomers(w, r)
		case parts[0] == "customers" && len(parts) == 1 && r.Method == "POST":
			salesH.CreateCustomer(w, r)
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "GET":
			salesH.GetCustomer(w, r, parts[1])
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "PUT":
			salesH.UpdateCustomer(w, r, parts[1])
		case parts[0] == "customers" && len(parts) == 2 && r.Method == "DELETE":
			salesH.DeleteCustomer(w, r, parts[1])

		// Products and stock
		case parts[0] == "products" && len(parts) == 2 && parts[1] == "low-stock" && r.Method == "GET":
			inventoryH.ListLowStock(w, r)
		case parts[0] == "products" && len(parts) == 1 && r.Method == "GET":
			inventoryH.ListProducts(w, r)
		case parts[0] == "products" && len(parts) == 1 && r.Method == "POST":
			inventoryH.CreateProduct(w, r)
		case parts[0] == "products" && len(parts) == 2 && r.Method == "GET":
			inventoryH.GetProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "PUT":
			inventoryH.UpdateProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 2 && r.Method == "DELETE":
			inventoryH.DeleteProduct(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "adjust" && r.Method == "POST":
			inventoryH.AdjustStock(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "transactions" && r.Method == "GET":
			inventoryH.ListTransactions(w, r, parts[1])

		// BOMs
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "bom" && r.Method == "GET":
			manufacturingH.GetBOM(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 3 && parts[2] == "bom" && r.Method == "POST":
			manufacturingH.AddBOMLine(w, r, parts[1])
		case parts[0] == "products" && len(parts) == 4 && parts[2] == "bom" && r.Method == "DELETE":
			manufacturingH.RemoveBOMLine(w, r, parts[1], parts[3])

		// Production orders
		case parts[0] == "production-orders" && len(parts) == 1 && r.Method == "GET":
			manufacturingH.ListProductionOrders(w, r)
		case parts[0] == "production-orders" && len(parts) == 1 && r.Method == "POST":
			manufacturingH.CreateProductionOrder(w, r)
		case parts[0] == "production-orders" && len(parts) == 2 && r.Method == "GET":
			manufacturingH.GetProductionOrder(w, r, parts[1])
		case parts[0] == "production-orders" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			manufacturingH.UpdateProductionOrderStatus(w, r, parts[1])
		case parts[0] == "production-orders" && len(parts) == 2 && r.Method == "DELETE":
			manufacturingH.DeleteProductionOrder(w, r, parts[1])

		// Work centers
		case parts[0] == "work-centers" && len(parts) == 1 && r.Method == "GET":
			manufacturingH.ListWorkCenters(w, r)
		case parts[0] == "work-centers" && len(parts) == 1 && r.Method == "POST":
			manufacturingH.CreateWorkCenter(w, r)
		case parts[0] == "work-centers" && len(parts) == 2 && r.Method == "GET":
			manufacturingH.GetWorkCenter(w, r, parts[1])
		case parts[0] == "work-centers" && len(parts) == 2 && r.Method == "PUT":
			manufacturingH.UpdateWorkCenter(w, r, parts[1])
		case parts[0] == "work-centers" && len(parts) == 2 && r.Method == "DELETE":
			manufacturingH.DeleteWorkCenter(w, r, parts[1])

		// Suppliers
		case parts[0] == "suppliers" && len(parts) == 1 && r.Method == "GET":
			procurementH.ListSuppliers(w, r)
		case parts[0] == "suppliers" && len(parts) == 1 && r.Method == "POST":
			procurementH.CreateSupplier(w, r)
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "GET":
			procurementH.GetSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "PUT":
			procurementH.UpdateSupplier(w, r, parts[1])
		case parts[0] == "suppliers" && len(parts) == 2 && r.Method == "DELETE":
			procurementH.DeleteSupplier(w, r, parts[1])

		// Purchase orders
		case parts[0] == "purchase-orders" && len(parts) == 1 && r.Method == "GET":
			procurementH.ListPurchaseOrders(w, r)
		case parts[0] == "purchase-orders" && len(parts) == 1 && r.Method == "POST":
			procurementH.CreatePurchaseOrder(w, r)
		case parts[0] == "purchase-orders" && len(parts) == 2 && r.Method == "GET":
			procurementH.GetPurchaseOrder(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 3 && parts[2] == "status" && r.Method == "PUT":
			procurementH.UpdatePurchaseOrderStatus(w, r, parts[1])
		case parts[0] == "purchase-orders" && len(parts) == 3 && parts[2] == "receive" && r.Method == "POST":
			procurementH.ReceivePurchaseOrder(w, r, parts[1])

		// Inspectors
		case parts[0] == "inspectors" && len(parts) == 1 && r.Method == "GET":
			qualityH.ListInspectors(w, r)
		case parts[0] == "inspectors" && len(parts) == 1 && r.Method == "POST":
			qualityH.CreateInspector(w, r)
		case parts[0] == "inspectors" && len(parts) == 2 && r.Method == "GET":
			qualityH.GetInspector(w, r, parts[1])
		case parts[0] == "inspectors" && len(parts) == 2 && r.Method == "PUT":
			qualityH.UpdateInspector(w, r, parts[1])

		// Quality checks
		case parts[0] == "quality-checks" && len(parts) == 1 && r.Method == "GET":
			qualityH.ListQualityChecks(w, r)
		case parts[0] == "quality-checks" && len(parts) == 1 && r.Method == "POST":
			qualityH.CreateQualityCheck(w, r)
		case parts[0] == "quality-checks" && len(parts) == 2 && r.Method == "GET":
			qualityH.GetQualityCheck(w, r, parts[1])
		case parts[0] == "quality-checks" && len(parts) == 3 && parts[2] == "result" && r.Method == "PUT":
			qualityH.UpdateQualityCheckResult(w, r, parts[1])

		// Users
		case parts[0] == "users" && len(parts) == 1 && r.Method == "GET":
			adminH.ListUsers(w, r)
		case parts[0] == "users" && len(parts) == 1 && r.Method == "POST":
			adminH.CreateUser(w, r)
		case parts[0] == "users" && len(parts) == 2 && r.Method == "PUT":
			adminH.UpdateUser(w, r, parts[1])

		// Notifications
		case parts[0] == "notifications" && len(parts) == 1 && r.Method == "GET":
			adminH.ListNotifications(w, r)
		case parts[0] == "notifications" && len(parts) == 2 && parts[1] == "read-all" && r.Method == "PUT":
			adminH.MarkAllNotificationsRead(w, r)
		case parts[0] == "notifications" && len(parts) == 2 && parts[1] == "refresh" && r.Method == "POST":
			adminH.RefreshNotifications(w, r)
		case parts[0] == "notifications" && len(parts) == 3 && parts[2] == "read" && r.Method == "PUT":
			adminH.MarkNotificationRead(w, r, parts[1])

		// Exports
		case parts[0] == "export" && len(parts) == 2 && parts[1] == "products" && r.Method == "GET":
			commonH.ExportProducts(w, r)
		case parts[0] == "export" && len(parts) == 2 && parts[1] == "customer-orders" && r.Method == "GET":
			commonH.ExportCustomerOrders(w, r)
		case parts[0] == "export" && len(parts) == 2 && parts[1] == "production-orders" && r.Method == "GET":
			commonH.ExportProductionOrders(w, r)

		default:
			response.Err(w, "not found", 404)
		}
	})

	log.Printf("mfgops server starting on http://localhost%s", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, logging(requestID(requireAuth(mux)))))
}
