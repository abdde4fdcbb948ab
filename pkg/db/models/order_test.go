package models

import (
	"testing"
	"time"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

func TestComputeHash_Deterministic(t *testing.T) {
	deadline := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	a := Order{
		OrderID:      "SO-2026-0001",
		ProductID:    "P-100",
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme Trading",
		Sales:        "li.wei",
		ShipDeadline: &deadline,
	}
	b := a

	// The deadline contributes only its calendar date.
	laterSameDay := deadline.Add(4 * time.Hour)
	b.ShipDeadline = &laterSameDay

	if a.ComputeHash() != b.ComputeHash() {
		t.Fatal("hashes differ for the same key fields")
	}

	nextDay := deadline.AddDate(0, 0, 1)
	b.ShipDeadline = &nextDay
	if a.ComputeHash() == b.ComputeHash() {
		t.Fatal("hash should change when the deadline date changes")
	}

	b = a
	b.Quantity = 99
	b.TrackingNumber = "TRK-1"
	b.Status = enums.OrderStatusCompleted
	if a.ComputeHash() != b.ComputeHash() {
		t.Fatal("mutable fields must not contribute to the hash")
	}
}

func TestComputeHash_NilDeadline(t *testing.T) {
	a := Order{OrderID: "SO-1", ProductID: "P-1", CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Acme", Sales: "wang"}
	if len(a.ComputeHash()) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a.ComputeHash()))
	}
}

func TestEnsureHash(t *testing.T) {
	o := Order{OrderID: "SO-1", ProductID: "P-1", CustomerName: "Acme", Sales: "wang"}
	o.EnsureHash()
	want := o.ComputeHash()
	if o.Hash != want {
		t.Fatalf("Hash = %q, want %q", o.Hash, want)
	}

	o.Hash = "preassigned"
	o.EnsureHash()
	if o.Hash != "preassigned" {
		t.Fatal("EnsureHash must not overwrite an assigned hash")
	}
}

func TestCheckEntity(t *testing.T) {
	o := Order{OrderID: "SO-1", ProductID: "P-1", CustomerName: "Acme"}
	if !o.CheckEntity() {
		t.Fatal("expected a complete line to pass")
	}
	o.CustomerName = ""
	if o.CheckEntity() {
		t.Fatal("expected a line without customer name to fail")
	}
}

func TestProductRefreshStatus(t *testing.T) {
	p := Product{StockQuantity: -1, Status: enums.InventoryStatusNormal}
	p.RefreshStatus()
	if p.Status != enums.InventoryStatusOutOfStock {
		t.Fatalf("Status = %s, want out_of_stock", p.Status)
	}

	p = Product{StockQuantity: 0, Status: enums.InventoryStatusInspecting}
	p.RefreshStatus()
	if p.Status != enums.InventoryStatusInspecting {
		t.Fatalf("Status = %s, want the explicit status preserved", p.Status)
	}
}
