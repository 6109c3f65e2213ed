package coupon

import (
	"context"
	"fmt"
	"strings"
)

// PriceCents is an integer currency amount in sen.
type PriceCents int64

// Int64 returns the raw amount.
func (amount PriceCents) Int64() int64 {
	return int64(amount)
}

// UserID identifies a coupon owner.
type UserID struct {
	value string
}

// CouponID identifies a purchased coupon.
type CouponID struct {
	value string
}

// VehicleNumber is a license plate a redemption is parked against.
type VehicleNumber struct {
	value string
}

// UseCount is a strictly positive number of uses consumed by one redemption.
type UseCount struct {
	value int
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// NewCouponID validates and normalizes a coupon id.
func NewCouponID(raw string) (CouponID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CouponID{}, fmt.Errorf("%w: empty value", ErrInvalidCouponID)
	}
	return CouponID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id CouponID) String() string {
	return id.value
}

// NewVehicleNumber validates and normalizes a license plate.
func NewVehicleNumber(raw string) (VehicleNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VehicleNumber{}, fmt.Errorf("%w: empty value", ErrInvalidVehicleNumber)
	}
	return VehicleNumber{value: trimmed}, nil
}

// String returns the normalized plate.
func (number VehicleNumber) String() string {
	return number.value
}

// NewUseCount validates a redemption use count.
func NewUseCount(raw int) (UseCount, error) {
	if raw < 1 {
		return UseCount{}, fmt.Errorf("%w: must be at least one", ErrInvalidUseCount)
	}
	return UseCount{value: raw}, nil
}

// Int returns the raw count.
func (count UseCount) Int() int {
	return count.value
}

// PaymentMethod enumerates the checkout options recorded on a transaction.
type PaymentMethod string

const (
	PaymentOnlineBanking PaymentMethod = "ONLINE_BANKING"
	PaymentEWallet       PaymentMethod = "E_WALLET"
	PaymentCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentStripe        PaymentMethod = "STRIPE"
)

// ParsePaymentMethod validates a wire-format payment method name.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.TrimSpace(raw))
	switch method {
	case PaymentOnlineBanking, PaymentEWallet, PaymentCreditCard, PaymentStripe:
		return method, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
}

// String returns the wire-format name.
func (method PaymentMethod) String() string {
	return string(method)
}

// UsageStatus defines the redemption lifecycle.
type UsageStatus string

const (
	UsageStatusActive  UsageStatus = "ACTIVE"
	UsageStatusExpired UsageStatus = "EXPIRED"
)

// String returns the wire-format name.
func (status UsageStatus) String() string {
	return string(status)
}

// Role separates drivers from enforcement staff.
type Role string

const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
)

// ParseRole validates a wire-format role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(raw))
	switch role {
	case RoleUser, RoleStaff:
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// String returns the wire-format name.
func (role Role) String() string {
	return string(role)
}

// Session is the authenticated caller of a service operation.
type Session struct {
	UserID UserID
	Role   Role
}

// Identity resolves the caller from the request context.
type Identity interface {
	CurrentSession(ctx context.Context) (Session, bool)
}

// Coupon is one purchased coupon's remaining-use balance record.
type Coupon struct {
	ID                    string
	UserID                string
	Type                  Tier
	RemainingUses         int
	UsedCount             int
	PurchaseDateUnixMilli int64
}

// Usage records one act of spending uses against a vehicle and location.
type Usage struct {
	ID                  string
	CouponID            string
	UserID              string
	UsedCount           int
	ParkingArea         string
	ParkingLotNumber    string
	VehicleNumber       string
	TimestampUnixMilli  int64
	Status              UsageStatus
	ExpirationUnixMilli int64
}

// IsExpired reports whether the usage window has passed.
// An expiration of zero means the usage never expires.
func (usage Usage) IsExpired(nowUnixMilli int64) bool {
	if usage.ExpirationUnixMilli == 0 {
		return false
	}
	return nowUnixMilli > usage.ExpirationUnixMilli
}

// TransactionLine is one cart line captured on a purchase summary.
type TransactionLine struct {
	CouponType      string `json:"couponType"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unitPrice"`
	TotalPriceCents int64  `json:"totalPrice"`
}

// Transaction summarizes one purchase batch.
type Transaction struct {
	ID                 string
	UserID             string
	Lines              []TransactionLine
	TotalAmountCents   int64
	PaymentMethod      string
	TimestampUnixMilli int64
}

// ReportType enumerates issue report categories.
type ReportType string

const (
	ReportParkingIssue ReportType = "PARKING_ISSUE"
	ReportAppBug       ReportType = "APP_BUG"
)

// ParseReportType validates a wire-format report type.
func ParseReportType(raw string) (ReportType, error) {
	reportType := ReportType(strings.TrimSpace(raw))
	switch reportType {
	case ReportParkingIssue, ReportAppBug:
		return reportType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReportType, raw)
}

// String returns the wire-format name.
func (reportType ReportType) String() string {
	return string(reportType)
}

// ReportStatus tracks triage of an issue report.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusInProgress ReportStatus = "IN_PROGRESS"
	ReportStatusResolved   ReportStatus = "RESOLVED"
	ReportStatusRejected   ReportStatus = "REJECTED"
)

// ParseReportStatus validates a wire-format report status.
func ParseReportStatus(raw string) (ReportStatus, error) {
	status := ReportStatus(strings.TrimSpace(raw))
	switch status {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusResolved, ReportStatusRejected:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReportStatus, raw)
}

// String returns the wire-format name.
func (status ReportStatus) String() string {
	return string(status)
}

// Report is an issue filed by a driver or staff member.
type Report struct {
	ID                 string
	UserID             string
	Type               ReportType
	Title              string
	Description        string
	ParkingArea        string
	ParkingLotNumber   string
	TimestampUnixMilli int64
	Status             ReportStatus
	ImageURLs          []string
}

// Vehicle is a saved license plate.
type Vehicle struct {
	ID           string
	UserID       string
	LicensePlate string
	IsFavorite   bool
}

// ParkingArea is a saved parking location.
type ParkingArea struct {
	ID         string
	UserID     string
	Name       string
	IsFavorite bool
}

// VehicleLookup pairs surviving redemptions with their parent coupons.
type VehicleLookup struct {
	Coupons []Coupon
	Usages  []Usage
}

// Store is the persistence contract used by Service.
// Implementations map driver failures onto the domain error taxonomy.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	InsertCoupon(ctx context.Context, record Coupon) error
	GetCoupon(ctx context.Context, couponID CouponID) (Coupon, error)
	ListActiveCoupons(ctx context.Context, userID UserID) ([]Coupon, error)
	UpdateCouponUses(ctx context.Context, couponID CouponID, remainingUses int, usedCount int) error

	InsertUsage(ctx context.Context, record Usage) error
	ListUsagesByVehicle(ctx context.Context, vehicle VehicleNumber, status UsageStatus) ([]Usage, error)
	ListUsagesByUser(ctx context.Context, userID UserID) ([]Usage, error)
	UpdateUsageStatus(ctx context.Context, usageID string, from, to UsageStatus) error

	InsertTransaction(ctx context.Context, record Transaction) error
	ListTransactionsByUser(ctx context.Context, userID UserID) ([]Transaction, error)

	InsertReport(ctx context.Context, record Report) error
	ListReportsByUser(ctx context.Context, userID UserID) ([]Report, error)
	ListReports(ctx context.Context) ([]Report, error)
	UpdateReportStatus(ctx context.Context, reportID string, status ReportStatus) error

	InsertVehicle(ctx context.Context, record Vehicle) error
	GetVehicle(ctx context.Context, vehicleID string) (Vehicle, error)
	DeleteVehicle(ctx context.Context, vehicleID string) error
	ListFavoriteVehicles(ctx context.Context, userID UserID) ([]Vehicle, error)

	InsertParkingArea(ctx context.Context, record ParkingArea) error
	GetParkingArea(ctx context.Context, areaID string) (ParkingArea, error)
	DeleteParkingArea(ctx context.Context, areaID string) error
	ListFavoriteParkingAreas(ctx context.Context, userID UserID) ([]ParkingArea, error)
}
