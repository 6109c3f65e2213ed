package coupon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Service contains the domain logic over a Store.
type Service struct {
	store    Store
	identity Identity
	nowFn    func() int64
	newID    func() string
	logger   OperationLogger
}

// NewService wires a Service. The clock returns unix milliseconds.
func NewService(store Store, identity Identity, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: identity dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, identity: identity, nowFn: now, newID: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// ActiveCoupons returns the caller's coupons that still have uses left.
func (service *Service) ActiveCoupons(ctx context.Context) ([]Coupon, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return service.store.ListActiveCoupons(ctx, session.UserID)
}

// Purchase materializes the cart into coupons, one per unit per line, each
// credited the full use grant, plus one transaction summary. All writes for
// the purchase go through a single store transaction. The cart is not
// required to be non-empty; callers are expected to check before submitting.
func (service *Service) Purchase(ctx context.Context, cart *Cart, method PaymentMethod) error {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	if cart == nil {
		cart = NewCart()
	}
	nowUnixMilli := service.nowFn()
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		lines := make([]TransactionLine, 0, len(cart.Lines()))
		for _, line := range cart.Lines() {
			for unit := 0; unit < line.Quantity; unit++ {
				record := Coupon{
					ID:                    service.newID(),
					UserID:                session.UserID.String(),
					Type:                  line.Tier,
					RemainingUses:         UseGrant(),
					UsedCount:             0,
					PurchaseDateUnixMilli: nowUnixMilli,
				}
				if err := transactionStore.InsertCoupon(ctx, record); err != nil {
					return err
				}
			}
			lines = append(lines, TransactionLine{
				CouponType:      line.Tier.String(),
				Quantity:        line.Quantity,
				UnitPriceCents:  line.Tier.UnitPriceCents().Int64(),
				TotalPriceCents: line.TotalPriceCents().Int64(),
			})
		}
		summary := Transaction{
			ID:                 service.newID(),
			UserID:             session.UserID.String(),
			Lines:              lines,
			TotalAmountCents:   cart.TotalPriceCents().Int64(),
			PaymentMethod:      method.String(),
			TimestampUnixMilli: nowUnixMilli,
		}
		return transactionStore.InsertTransaction(ctx, summary)
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationPurchase,
		UserID:      session.UserID,
		AmountCents: cart.TotalPriceCents(),
		Error:       operationError,
	})
	return operationError
}

// Redeem consumes uses from one coupon and records an active usage whose
// expiration is the start time plus uses times the tier's per-use duration.
// The balance check, decrement, and usage insert share one store transaction
// so a redemption is all-or-nothing. A zero start time means now.
func (service *Service) Redeem(ctx context.Context, couponID CouponID, uses UseCount, parkingArea string, parkingLotNumber string, vehicle VehicleNumber, startUnixMilli int64) error {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	if strings.TrimSpace(parkingArea) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidParkingArea)
	}
	if strings.TrimSpace(parkingLotNumber) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidParkingLot)
	}
	if startUnixMilli == 0 {
		startUnixMilli = service.nowFn()
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		record, err := transactionStore.GetCoupon(ctx, couponID)
		if err != nil {
			return err
		}
		if record.RemainingUses-uses.Int() < 0 {
			return ErrInsufficientBalance
		}
		expiration := startUnixMilli + int64(uses.Int())*record.Type.PerUseDuration().Milliseconds()
		if err := transactionStore.UpdateCouponUses(ctx, couponID, record.RemainingUses-uses.Int(), record.UsedCount+uses.Int()); err != nil {
			return err
		}
		usage := Usage{
			ID:                  service.newID(),
			CouponID:            couponID.String(),
			UserID:              session.UserID.String(),
			UsedCount:           uses.Int(),
			ParkingArea:         strings.TrimSpace(parkingArea),
			ParkingLotNumber:    strings.TrimSpace(parkingLotNumber),
			VehicleNumber:       vehicle.String(),
			TimestampUnixMilli:  startUnixMilli,
			Status:              UsageStatusActive,
			ExpirationUnixMilli: expiration,
		}
		return transactionStore.InsertUsage(ctx, usage)
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationRedeem,
		UserID:        session.UserID,
		CouponID:      couponID.String(),
		VehicleNumber: vehicle.String(),
		Uses:          uses.Int(),
		Error:         operationError,
	})
	return operationError
}

// LookupVehicle gathers the active redemptions parked against a plate for
// staff verification. Records whose window has passed are transitioned to
// expired as a side effect of the read and excluded from the result; the
// status write is a compare-and-set so the transition happens at most once.
// Parent coupons are fetched best-effort: a missing parent is skipped.
func (service *Service) LookupVehicle(ctx context.Context, vehicle VehicleNumber) (VehicleLookup, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return VehicleLookup{}, ErrNotLoggedIn
	}
	if session.Role != RoleStaff {
		return VehicleLookup{}, ErrStaffOnly
	}
	lookup, operationError := service.gatherVehicleLookup(ctx, vehicle)
	service.logOperation(ctx, OperationLog{
		Operation:     operationLookup,
		UserID:        session.UserID,
		VehicleNumber: vehicle.String(),
		Error:         operationError,
	})
	if operationError != nil {
		return VehicleLookup{}, operationError
	}
	return lookup, nil
}

func (service *Service) gatherVehicleLookup(ctx context.Context, vehicle VehicleNumber) (VehicleLookup, error) {
	usages, err := service.lookupUsages(ctx, vehicle)
	if err != nil {
		return VehicleLookup{}, err
	}
	coupons, err := service.lookupParents(ctx, usages)
	if err != nil {
		return VehicleLookup{}, err
	}
	return VehicleLookup{Coupons: coupons, Usages: usages}, nil
}

func (service *Service) lookupUsages(ctx context.Context, vehicle VehicleNumber) ([]Usage, error) {
	records, err := service.store.ListUsagesByVehicle(ctx, vehicle, UsageStatusActive)
	if err != nil {
		return nil, err
	}
	nowUnixMilli := service.nowFn()
	surviving := make([]Usage, 0, len(records))
	for _, record := range records {
		if record.IsExpired(nowUnixMilli) {
			if err := service.store.UpdateUsageStatus(ctx, record.ID, UsageStatusActive, UsageStatusExpired); err != nil {
				return nil, err
			}
			continue
		}
		surviving = append(surviving, record)
	}
	sort.SliceStable(surviving, func(left, right int) bool {
		return surviving[left].TimestampUnixMilli > surviving[right].TimestampUnixMilli
	})
	return surviving, nil
}

func (service *Service) lookupParents(ctx context.Context, usages []Usage) ([]Coupon, error) {
	seen := make(map[string]bool, len(usages))
	coupons := make([]Coupon, 0, len(usages))
	for _, usage := range usages {
		if seen[usage.CouponID] {
			continue
		}
		seen[usage.CouponID] = true
		couponID, err := NewCouponID(usage.CouponID)
		if err != nil {
			continue
		}
		record, err := service.store.GetCoupon(ctx, couponID)
		if errors.Is(err, ErrCouponNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, record)
	}
	return coupons, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
