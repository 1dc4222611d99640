package common

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportProducts exports the product list to CSV or Excel.
func (h *Handler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	search := r.URL.Query().Get("search")
	ptype := r.URL.Query().Get("type")

	query := "SELECT id,sku,name,COALESCE(description,''),product_type,current_stock,minimum_stock_level,lead_time_days,unit_price FROM products WHERE 1=1"
	var args []interface{}
	if search != "" {
		query += " AND (id LIKE ? OR sku LIKE ? OR name LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term, term)
	}
	if ptype != "" {
		query += " AND product_type=?"
		args = append(args, ptype)
	}
	query += " ORDER BY id"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "SKU", "Name", "Description", "Type", "Current Stock", "Minimum Stock", "Lead Time Days", "Unit Price"}
	var data [][]string

	for rows.Next() {
		var id, sku, name, description, productType string
		var stock, minStock, leadTime int
		var unitPrice float64
		rows.Scan(&id, &sku, &name, &description, &productType, &stock, &minStock, &leadTime, &unitPrice)
		data = append(data, []string{
			id, sku, name, description, productType,
			strconv.Itoa(stock), strconv.Itoa(minStock), strconv.Itoa(leadTime),
			fmt.Sprintf("%.2f", unitPrice),
		})
	}

	h.LogDataExport(r, "products", format, len(data))

	if format == "xlsx" {
		ExportExcel(w, "Products", headers, data)
	} else {
		ExportCSV(w, "products.csv", headers, data)
	}
}

// ExportCustomerOrders exports customer orders to CSV or Excel.
func (h *Handler) ExportCustomerOrders(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	status := r.URL.Query().Get("status")
	query := "SELECT id,customer_id,status,required_date,total_amount,COALESCE(notes,''),created_at FROM customer_orders"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Customer", "Status", "Required Date", "Total", "Notes", "Created At"}
	var data [][]string

	for rows.Next() {
		var id, customerID, st, requiredDate, notes, createdAt string
		var total float64
		rows.Scan(&id, &customerID, &st, &requiredDate, &total, &notes, &createdAt)
		data = append(data, []string{id, customerID, st, requiredDate, fmt.Sprintf("%.2f", total), notes, createdAt})
	}

	h.LogDataExport(r, "customer_orders", format, len(data))

	if format == "xlsx" {
		ExportExcel(w, "CustomerOrders", headers, data)
	} else {
		ExportCSV(w, "customer_orders.csv", headers, data)
	}
}

// ExportProductionOrders exports production orders to CSV or Excel.
func (h *Handler) ExportProductionOrders(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	status := r.URL.Query().Get("status")
	query := "SELECT id,product_id,COALESCE(customer_order_id,''),quantity,status,priority,due_date,COALESCE(notes,''),created_at FROM production_orders"
	var args []interface{}
	if status != "" {
		query += " WHERE status=?"
		args = append(args, status)
	}
	query += " ORDER BY id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	headers := []string{"ID", "Product", "Customer Order", "Qty", "Status", "Priority", "Due Date", "Notes", "Created At"}
	var data [][]string

	for rows.Next() {
		var id, productID, customerOrderID, st, priority, dueDate, notes, createdAt string
		var qty int
		rows.Scan(&id, &productID, &customerOrderID, &qty, &st, &priority, &dueDate, &notes, &createdAt)
		data = append(data, []string{id, productID, customerOrderID, strconv.Itoa(qty), st, priority, dueDate, notes, createdAt})
	}

	h.LogDataExport(r, "production_orders", format, len(data))

	if format == "xlsx" {
		ExportExcel(w, "ProductionOrders", headers, data)
	} else {
		ExportCSV(w, "production_orders.csv", headers, data)
	}
}

// ExportCSV writes data to CSV format.
func ExportCSV(w http.ResponseWriter, filename string, headers []string, data [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		http.Error(w, "Failed to write CSV headers", 500)
		return
	}
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			http.Error(w, "Failed to write CSV row", 500)
			return
		}
	}
}

// ExportExcel writes data to Excel format.
func ExportExcel(w http.ResponseWriter, sheetName string, headers []string, data [][]string) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		http.Error(w, "Failed to create Excel sheet", 500)
		return
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		http.Error(w, "Failed to create header style", 500)
		return
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", string(rune('A'+i)))
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", string(rune('A'+colIdx)), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 15)
	}

	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", strings.ToLower(sheetName)))

	if err := f.Write(w); err != nil {
		http.Error(w, "Failed to write Excel file", 500)
		return
	}
}
