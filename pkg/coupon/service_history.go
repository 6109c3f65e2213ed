package coupon

import (
	"context"
	"sort"
)

// ParkingHistory returns the caller's redemptions, newest first. Statuses are
// reported as stored: a record can read as active for the window between its
// logical expiry and the next vehicle lookup that rewrites it.
func (service *Service) ParkingHistory(ctx context.Context) ([]Usage, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	usages, err := service.store.ListUsagesByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(usages, func(left, right int) bool {
		return usages[left].TimestampUnixMilli > usages[right].TimestampUnixMilli
	})
	return usages, nil
}

// PurchaseHistory returns the caller's purchase summaries, newest first.
func (service *Service) PurchaseHistory(ctx context.Context) ([]Transaction, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	transactions, err := service.store.ListTransactionsByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(transactions, func(left, right int) bool {
		return transactions[left].TimestampUnixMilli > transactions[right].TimestampUnixMilli
	})
	return transactions, nil
}
