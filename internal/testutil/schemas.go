package testutil

import "github.com/roach88/dataservice/internal/ir"

// Test4Service is the four-column service most parser tests run against:
// A and C are strings, B and D integers.
func Test4Service() ir.ServiceSpec {
	return ir.ServiceSpec{
		Name:    "Service",
		Purpose: "parser fixture with two string and two integer columns",
		Columns: []ir.Column{
			{Name: "A", Type: ir.TypeString},
			{Name: "B", Type: ir.TypeInteger},
			{Name: "C", Type: ir.TypeString},
			{Name: "D", Type: ir.TypeInteger},
		},
	}
}

// Test4Schema is the row layout of Test4Service.
func Test4Schema() *ir.RowSchema {
	return Test4Service().Schema()
}

// SalesService mirrors the sales cube used by machine-generated clauses.
func SalesService() ir.ServiceSpec {
	return ir.ServiceSpec{
		Name:    "Service",
		Table:   "sales",
		Purpose: "sales per category and country",
		Columns: []ir.Column{
			{Name: "Category", Type: ir.TypeString},
			{Name: "Country", Type: ir.TypeString},
			{Name: "products_sold", Type: ir.TypeInteger},
			{Name: "sales_amount", Type: ir.TypeNumber},
		},
	}
}

// SalesSchema is the row layout of SalesService.
func SalesSchema() *ir.RowSchema {
	return SalesService().Schema()
}

// CustomersService is a customer listing whose clauses qualify columns with
// a name other than the service's.
func CustomersService() ir.ServiceSpec {
	return ir.ServiceSpec{
		Name:    "GETTING_STARTED",
		Purpose: "customer orders",
		Columns: []ir.Column{
			{Name: "CUSTOMERNAME", Type: ir.TypeString},
			{Name: "MONTH_ID", Type: ir.TypeInteger},
			{Name: "YEAR_ID", Type: ir.TypeInteger},
			{Name: "STATE", Type: ir.TypeString},
			{Name: "SALES", Type: ir.TypeNumber},
		},
	}
}

// CustomersSchema is the row layout of CustomersService.
func CustomersSchema() *ir.RowSchema {
	return CustomersService().Schema()
}

// fixtures maps the names scenarios use to the services above.
var fixtures = map[string]func() ir.ServiceSpec{
	"test4":     Test4Service,
	"sales":     SalesService,
	"customers": CustomersService,
}

// Fixture returns the named fixture service.
func Fixture(name string) (ir.ServiceSpec, bool) {
	fn, ok := fixtures[name]
	if !ok {
		return ir.ServiceSpec{}, false
	}
	return fn(), true
}
