package coupon

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a fixed coupon duration class with a fixed price and use grant.
type Tier string

const (
	TierMinutes30 Tier = "MINUTES_30"
	TierHour1     Tier = "HOUR_1"
	TierHours2    Tier = "HOURS_2"
	TierHours24   Tier = "HOURS_24"
)

// Every purchased coupon is credited the same number of uses regardless of tier.
const useGrantPerCoupon = 10

// ParseTier validates a wire-format tier name.
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.TrimSpace(raw))
	switch tier {
	case TierMinutes30, TierHour1, TierHours2, TierHours24:
		return tier, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTier, raw)
}

// String returns the wire-format name.
func (tier Tier) String() string {
	return string(tier)
}

// UnitPriceCents returns the fixed purchase price in sen for one coupon.
func (tier Tier) UnitPriceCents() PriceCents {
	switch tier {
	case TierMinutes30:
		return 425
	case TierHour1:
		return 850
	case TierHours2:
		return 1695
	case TierHours24:
		return 6360
	}
	return 0
}

// PerUseDuration returns the parking time bought by a single use.
func (tier Tier) PerUseDuration() time.Duration {
	switch tier {
	case TierMinutes30:
		return 30 * time.Minute
	case TierHour1:
		return time.Hour
	case TierHours2:
		return 2 * time.Hour
	case TierHours24:
		return 24 * time.Hour
	}
	return 0
}

// DisplayName returns the customer-facing tier label.
func (tier Tier) DisplayName() string {
	switch tier {
	case TierMinutes30:
		return "30 Minutes Coupon"
	case TierHour1:
		return "1 Hour Coupon"
	case TierHours2:
		return "2 Hours Coupon"
	case TierHours24:
		return "24 Hours Coupon"
	}
	return string(tier)
}

// UseGrant returns the number of uses credited per purchased coupon.
func UseGrant() int {
	return useGrantPerCoupon
}
