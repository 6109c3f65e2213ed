package coupon

import (
	"errors"
	"testing"
)

func TestNewUserIDTrimsWhitespace(test *testing.T) {
	test.Parallel()
	userID, err := NewUserID("  user-1  ")
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	if userID.String() != "user-1" {
		test.Fatalf("expected trimmed id, got %q", userID.String())
	}
	if _, err := NewUserID("   "); !errors.Is(err, ErrInvalidUserID) {
		test.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestNewCouponIDRejectsEmpty(test *testing.T) {
	test.Parallel()
	if _, err := NewCouponID(""); !errors.Is(err, ErrInvalidCouponID) {
		test.Fatalf("expected ErrInvalidCouponID, got %v", err)
	}
}

func TestNewVehicleNumberRejectsEmpty(test *testing.T) {
	test.Parallel()
	if _, err := NewVehicleNumber("  "); !errors.Is(err, ErrInvalidVehicleNumber) {
		test.Fatalf("expected ErrInvalidVehicleNumber, got %v", err)
	}
	plate, err := NewVehicleNumber(" QSB 1234 ")
	if err != nil {
		test.Fatalf("vehicle number: %v", err)
	}
	if plate.String() != "QSB 1234" {
		test.Fatalf("expected trimmed plate, got %q", plate.String())
	}
}

func TestNewUseCountRequiresPositive(test *testing.T) {
	test.Parallel()
	for _, raw := range []int{0, -1, -10} {
		if _, err := NewUseCount(raw); !errors.Is(err, ErrInvalidUseCount) {
			test.Fatalf("expected ErrInvalidUseCount for %d, got %v", raw, err)
		}
	}
	count, err := NewUseCount(3)
	if err != nil {
		test.Fatalf("use count: %v", err)
	}
	if count.Int() != 3 {
		test.Fatalf("expected 3, got %d", count.Int())
	}
}

func TestParsePaymentMethod(test *testing.T) {
	test.Parallel()
	method, err := ParsePaymentMethod("E_WALLET")
	if err != nil {
		test.Fatalf("payment method: %v", err)
	}
	if method != PaymentEWallet {
		test.Fatalf("expected E_WALLET, got %s", method)
	}
	if _, err := ParsePaymentMethod("CASH"); !errors.Is(err, ErrInvalidPaymentMethod) {
		test.Fatalf("expected ErrInvalidPaymentMethod, got %v", err)
	}
}

func TestParseRole(test *testing.T) {
	test.Parallel()
	role, err := ParseRole("STAFF")
	if err != nil {
		test.Fatalf("role: %v", err)
	}
	if role != RoleStaff {
		test.Fatalf("expected STAFF, got %s", role)
	}
	if _, err := ParseRole("ADMIN"); !errors.Is(err, ErrInvalidRole) {
		test.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestParseReportTypeAndStatus(test *testing.T) {
	test.Parallel()
	if _, err := ParseReportType("PARKING_ISSUE"); err != nil {
		test.Fatalf("report type: %v", err)
	}
	if _, err := ParseReportType("OTHER"); !errors.Is(err, ErrInvalidReportType) {
		test.Fatalf("expected ErrInvalidReportType, got %v", err)
	}
	if _, err := ParseReportStatus("IN_PROGRESS"); err != nil {
		test.Fatalf("report status: %v", err)
	}
	if _, err := ParseReportStatus("DONE"); !errors.Is(err, ErrInvalidReportStatus) {
		test.Fatalf("expected ErrInvalidReportStatus, got %v", err)
	}
}

func TestUsageIsExpired(test *testing.T) {
	test.Parallel()
	usage := Usage{ExpirationUnixMilli: 1_000}
	if usage.IsExpired(999) {
		test.Fatalf("expected not expired before the boundary")
	}
	if usage.IsExpired(1_000) {
		test.Fatalf("expected not expired at the boundary")
	}
	if !usage.IsExpired(1_001) {
		test.Fatalf("expected expired past the boundary")
	}
	eternal := Usage{ExpirationUnixMilli: 0}
	if eternal.IsExpired(1 << 50) {
		test.Fatalf("expected zero expiration to never expire")
	}
}
