package coupon

import (
	"context"
	"errors"
	"testing"
)

func TestParkingHistoryNewestFirst(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.usages = []Usage{
		{ID: "u-1", UserID: "driver-h1", TimestampUnixMilli: 100, Status: UsageStatusExpired},
		{ID: "u-2", UserID: "driver-h1", TimestampUnixMilli: 300, Status: UsageStatusActive},
		{ID: "u-3", UserID: "other-driver", TimestampUnixMilli: 200, Status: UsageStatusActive},
	}
	service := mustNewService(test, store, userIdentity("driver-h1"))

	usages, err := service.ParkingHistory(context.Background())
	if err != nil {
		test.Fatalf("parking history: %v", err)
	}
	if len(usages) != 2 {
		test.Fatalf("expected 2 usages, got %d", len(usages))
	}
	if usages[0].ID != "u-2" || usages[1].ID != "u-1" {
		test.Fatalf("expected newest first, got %+v", usages)
	}
}

func TestParkingHistoryReportsStoredStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	// A logically expired record stays ACTIVE until the next vehicle
	// lookup rewrites it; history reports what the store holds.
	store.usages = []Usage{
		{ID: "u-4", UserID: "driver-h2", TimestampUnixMilli: 100, Status: UsageStatusActive, ExpirationUnixMilli: 200},
	}
	service := mustNewService(test, store, userIdentity("driver-h2"))

	usages, err := service.ParkingHistory(context.Background())
	if err != nil {
		test.Fatalf("parking history: %v", err)
	}
	if usages[0].Status != UsageStatusActive {
		test.Fatalf("expected stored status, got %s", usages[0].Status)
	}
}

func TestPurchaseHistoryNewestFirst(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.transactions = []Transaction{
		{ID: "t-1", UserID: "buyer-h1", TimestampUnixMilli: 100},
		{ID: "t-2", UserID: "buyer-h1", TimestampUnixMilli: 500},
		{ID: "t-3", UserID: "someone-else", TimestampUnixMilli: 400},
	}
	service := mustNewService(test, store, userIdentity("buyer-h1"))

	transactions, err := service.PurchaseHistory(context.Background())
	if err != nil {
		test.Fatalf("purchase history: %v", err)
	}
	if len(transactions) != 2 {
		test.Fatalf("expected 2 transactions, got %d", len(transactions))
	}
	if transactions[0].ID != "t-2" || transactions[1].ID != "t-1" {
		test.Fatalf("expected newest first, got %+v", transactions)
	}
}

func TestHistoryRequiresSession(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store, anonymousIdentity())

	if _, err := service.ParkingHistory(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		test.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := service.PurchaseHistory(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		test.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}
