// Package sampledb seeds a small business dataset used by the seed command
// and by end-to-end tests: customers, products, employees, plus generated
// orders and order details.
package sampledb

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id INTEGER PRIMARY KEY,
		company_name TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		city TEXT NOT NULL,
		country TEXT NOT NULL,
		registration_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER PRIMARY KEY,
		product_name TEXT NOT NULL,
		category TEXT NOT NULL,
		unit_price REAL NOT NULL,
		units_in_stock INTEGER NOT NULL,
		supplier TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		salary REAL NOT NULL,
		hire_date DATE NOT NULL,
		age INTEGER NOT NULL,
		manager_id INTEGER,
		email TEXT,
		phone TEXT,
		FOREIGN KEY (manager_id) REFERENCES employees (id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY,
		customer_id INTEGER,
		employee_id INTEGER,
		order_date DATE NOT NULL,
		ship_date DATE,
		ship_city TEXT,
		ship_country TEXT,
		freight REAL NOT NULL,
		FOREIGN KEY (customer_id) REFERENCES customers (customer_id),
		FOREIGN KEY (employee_id) REFERENCES employees (id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		order_id INTEGER,
		product_id INTEGER,
		unit_price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		discount REAL DEFAULT 0,
		PRIMARY KEY (order_id, product_id),
		FOREIGN KEY (order_id) REFERENCES orders (order_id),
		FOREIGN KEY (product_id) REFERENCES products (product_id)
	)`,
}

type customer struct {
	id                                            int
	company, contact, email, phone, city, country string
	registered                                    string
}

var customers = []customer{
	{1, "Tech Solutions Inc", "John Anderson", "j.anderson@techsol.com", "+1-555-0101", "New York", "USA", "2022-01-15"},
	{2, "Global Enterprises", "Sarah Johnson", "s.johnson@global.com", "+1-555-0102", "Los Angeles", "USA", "2022-02-20"},
	{3, "Innovation Corp", "Michael Brown", "m.brown@innovation.com", "+1-555-0103", "Chicago", "USA", "2022-03-10"},
	{4, "Future Systems", "Emily Davis", "e.davis@future.com", "+44-555-0104", "London", "UK", "2022-04-05"},
	{5, "Digital Dynamics", "Robert Wilson", "r.wilson@digital.com", "+49-555-0105", "Berlin", "Germany", "2022-05-12"},
	{6, "Smart Solutions", "Lisa Garcia", "l.garcia@smart.com", "+33-555-0106", "Paris", "France", "2022-06-18"},
	{7, "Advanced Tech", "David Miller", "d.miller@advanced.com", "+1-555-0107", "Toronto", "Canada", "2022-07-22"},
	{8, "NextGen Industries", "Jennifer Taylor", "j.taylor@nextgen.com", "+61-555-0108", "Sydney", "Australia", "2022-08-30"},
}

type product struct {
	id       int
	name     string
	category string
	price    float64
	stock    int
	supplier string
}

var products = []product{
	{1, "Enterprise Software License", "Software", 5000.00, 100, "Microsoft Corp"},
	{2, "Database Management System", "Software", 3500.00, 50, "Oracle Inc"},
	{3, "Cloud Storage Service", "Cloud Services", 1200.00, 200, "Amazon Web Services"},
	{4, "Security Consultation", "Consulting", 8000.00, 25, "CyberSec Solutions"},
	{5, "Data Analytics Platform", "Analytics", 6500.00, 75, "Tableau Inc"},
	{6, "Mobile App Development", "Development", 15000.00, 30, "AppDev Studios"},
	{7, "Network Infrastructure", "Hardware", 12000.00, 40, "Cisco Systems"},
	{8, "Training Program", "Education", 2500.00, 150, "TechEd Institute"},
	{9, "Support & Maintenance", "Support", 1800.00, 300, "TechSupport Ltd"},
	{10, "Business Intelligence Suite", "Analytics", 7200.00, 60, "PowerBI Corp"},
}

type employee struct {
	id         int
	name       string
	department string
	salary     float64
	hireDate   string
	age        int
	managerID  *int
	email      string
	phone      string
}

func ptr(i int) *int { return &i }

var employees = []employee{
	{1, "John Doe", "Engineering", 75000, "2022-01-15", 28, nil, "j.doe@company.com", "+1-555-1001"},
	{2, "Jane Smith", "Marketing", 65000, "2021-03-20", 32, nil, "j.smith@company.com", "+1-555-1002"},
	{3, "Bob Johnson", "Sales", 55000, "2023-06-10", 25, ptr(2), "b.johnson@company.com", "+1-555-1003"},
	{4, "Alice Brown", "Engineering", 80000, "2020-11-05", 35, ptr(1), "a.brown@company.com", "+1-555-1004"},
	{5, "Charlie Wilson", "HR", 60000, "2022-08-12", 29, nil, "c.wilson@company.com", "+1-555-1005"},
	{6, "Diana Davis", "Sales", 58000, "2023-02-28", 27, ptr(2), "d.davis@company.com", "+1-555-1006"},
	{7, "Eva Martinez", "Marketing", 67000, "2021-09-15", 31, ptr(2), "e.martinez@company.com", "+1-555-1007"},
	{8, "Frank Lee", "Engineering", 72000, "2022-04-03", 26, ptr(1), "f.lee@company.com", "+1-555-1008"},
	{9, "Grace Kim", "Sales", 62000, "2023-01-12", 30, ptr(2), "g.kim@company.com", "+1-555-1009"},
	{10, "Henry Adams", "Engineering", 78000, "2021-12-20", 33, ptr(1), "h.adams@company.com", "+1-555-1010"},
}

const (
	orderCount = 100
	// randSeed keeps generated orders stable across runs so tests and demos
	// see the same data.
	randSeed = 42
)

// salesEmployees receive the generated orders.
var salesEmployees = []int{3, 6, 9}

// Seed creates the sample tables and fills them. Fixed rows use INSERT OR
// REPLACE so re-seeding an existing file is idempotent for the static data.
func Seed(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create sample table: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO customers VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			c.id, c.company, c.contact, c.email, c.phone, c.city, c.country, c.registered); err != nil {
			return fmt.Errorf("failed to insert customer %d: %w", c.id, err)
		}
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO products VALUES (?, ?, ?, ?, ?, ?)",
			p.id, p.name, p.category, p.price, p.stock, p.supplier); err != nil {
			return fmt.Errorf("failed to insert product %d: %w", p.id, err)
		}
	}
	for _, e := range employees {
		var manager any
		if e.managerID != nil {
			manager = *e.managerID
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO employees VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			e.id, e.name, e.department, e.salary, e.hireDate, e.age, manager, e.email, e.phone); err != nil {
			return fmt.Errorf("failed to insert employee %d: %w", e.id, err)
		}
	}

	if err := seedOrders(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	zap.S().Infof("sample database seeded: %d customers, %d products, %d employees, %d orders",
		len(customers), len(products), len(employees), orderCount)
	return nil
}

// seedOrders generates a year of orders from a fixed seed, spread across
// customers and sales employees, each with 1-5 line items.
func seedOrders(ctx context.Context, tx *sql.Tx) error {
	rng := rand.New(rand.NewSource(randSeed))
	start := time.Now().AddDate(-1, 0, 0)

	for orderID := 1; orderID <= orderCount; orderID++ {
		orderDate := start.AddDate(0, 0, rng.Intn(366))
		shipDate := orderDate.AddDate(0, 0, 1+rng.Intn(7))
		cust := customers[rng.Intn(len(customers))]
		employeeID := salesEmployees[rng.Intn(len(salesEmployees))]
		freight := 50 + rng.Float64()*450

		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO orders VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			orderID, cust.id, employeeID,
			orderDate.Format("2006-01-02"), shipDate.Format("2006-01-02"),
			cust.city, cust.country, round2(freight)); err != nil {
			return fmt.Errorf("failed to insert order %d: %w", orderID, err)
		}

		for _, productID := range pickProducts(rng) {
			p := products[productID-1]
			quantity := 1 + rng.Intn(10)
			discount := discounts[rng.Intn(len(discounts))]
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO order_details VALUES (?, ?, ?, ?, ?)",
				orderID, productID, p.price, quantity, discount); err != nil {
				return fmt.Errorf("failed to insert order detail %d/%d: %w", orderID, productID, err)
			}
		}
	}
	return nil
}

// Most orders carry no discount.
var discounts = []float64{0, 0, 0, 0.05, 0.1, 0.15}

// pickProducts draws 1-5 distinct product ids.
func pickProducts(rng *rand.Rand) []int {
	n := 1 + rng.Intn(5)
	perm := rng.Perm(len(products))
	picked := make([]int, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, products[idx].id)
	}
	return picked
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
