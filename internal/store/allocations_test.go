package store

import (
	"context"
	"testing"

	"github.com/medrep/promostock/internal/db"
	"github.com/medrep/promostock/internal/model"
)

func TestGetAllocationMissing(t *testing.T) {
	database := db.NewTestDB(t)

	item := seedItem(t, database, "Pen", 10)
	user := seedUser(t, database, "rep", model.RoleMedicalRep)

	allocation, err := GetAllocation(context.Background(), database, item.ID, user.ID)
	if err != nil {
		t.Fatalf("GetAllocation: %v", err)
	}
	if allocation != nil {
		t.Error("expected nil for user holding nothing")
	}
}

func TestListAllocationsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedItem(t, database, "Pen", 100)
	other := seedItem(t, database, "Mug", 100)
	alice := seedUser(t, database, "alice", model.RoleMedicalRep)
	bob := seedUser(t, database, "bob", model.RoleMedicalRep)

	allocate(t, database, item.ID, alice.ID, 10)
	allocate(t, database, item.ID, bob.ID, 20)
	allocate(t, database, other.ID, alice.ID, 5)

	all, _ := ListAllocations(ctx, database, 0, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 allocations, got %d", len(all))
	}

	byItem, _ := ListAllocations(ctx, database, item.ID, 0)
	if len(byItem) != 2 {
		t.Errorf("expected 2 allocations for item, got %d", len(byItem))
	}

	byBoth, _ := ListAllocations(ctx, database, item.ID, alice.ID)
	if len(byBoth) != 1 || byBoth[0].Quantity != 10 {
		t.Errorf("expected alice's pen allocation, got %+v", byBoth)
	}
	if byBoth[0].Username != "alice" || byBoth[0].ItemName != "Pen" {
		t.Errorf("expected joined names, got %+v", byBoth[0])
	}
}

func TestCentralAvailableIsDerived(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := seedItem(t, database, "Pen", 100)
	alice := seedUser(t, database, "alice", model.RoleMedicalRep)
	bob := seedUser(t, database, "bob", model.RoleMedicalRep)

	available, err := CentralAvailable(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("CentralAvailable: %v", err)
	}
	if available != 100 {
		t.Errorf("expected 100 available, got %d", available)
	}

	allocate(t, database, item.ID, alice.ID, 30)
	allocate(t, database, item.ID, bob.ID, 25)

	available, _ = CentralAvailable(ctx, database, item.ID)
	if available != 45 {
		t.Errorf("expected 45 available, got %d", available)
	}

	total, _ := AllocatedTotal(ctx, database, item.ID)
	if total != 55 {
		t.Errorf("expected 55 allocated, got %d", total)
	}

	// The nominal total is untouched by allocations.
	got, _ := GetItem(ctx, database, item.ID)
	if got.Quantity != 100 {
		t.Errorf("expected nominal quantity 100, got %d", got.Quantity)
	}
}

func TestCentralAvailableUnknownItem(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := CentralAvailable(context.Background(), database, 999); err == nil {
		t.Error("expected error for unknown item")
	}
}
