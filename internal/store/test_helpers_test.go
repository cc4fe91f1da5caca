package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/dataservice/internal/ir"
	"github.com/roach88/dataservice/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createSalesStore returns a store with the sales service registered and
// loaded with a small fixed data set.
func createSalesStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.RegisterService(ctx, testutil.SalesService()); err != nil {
		t.Fatalf("RegisterService() failed: %v", err)
	}
	if _, err := s.InsertRows(ctx, testutil.SalesService(), salesRows()); err != nil {
		t.Fatalf("InsertRows() failed: %v", err)
	}
	return s
}

func salesRows() []ir.IRObject {
	return []ir.IRObject{
		{"Category": ir.IRString("Bikes"), "Country": ir.IRString("France"), "products_sold": ir.IRInt(12), "sales_amount": ir.MustIRDecimal("1500.50")},
		{"Category": ir.IRString("Helmets"), "Country": ir.IRString("Spain"), "products_sold": ir.IRInt(40), "sales_amount": ir.MustIRDecimal("800")},
		{"Category": ir.IRString("Bikes"), "Country": ir.IRString("Spain"), "products_sold": ir.IRInt(3), "sales_amount": ir.MustIRDecimal("450.25")},
		{"Category": ir.IRString("Gloves"), "Country": ir.IRNull{}, "products_sold": ir.IRInt(7)},
	}
}
