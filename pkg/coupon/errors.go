package coupon

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the coupon service.
var (
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrStaffOnly           = errors.New("staff only")
	ErrNotOwner            = errors.New("not the record owner")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrUsageNotFound       = errors.New("usage not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrParkingAreaNotFound = errors.New("parking area not found")
	ErrInsufficientBalance = errors.New("not enough remaining uses")
	ErrStoreUnavailable    = errors.New("store unavailable")

	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidCouponID      = errors.New("invalid coupon id")
	ErrInvalidTier          = errors.New("invalid coupon tier")
	ErrInvalidUseCount      = errors.New("invalid use count")
	ErrInvalidVehicleNumber = errors.New("invalid vehicle number")
	ErrInvalidParkingArea   = errors.New("invalid parking area")
	ErrInvalidParkingLot    = errors.New("invalid parking lot number")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidReportType    = errors.New("invalid report type")
	ErrInvalidReportStatus  = errors.New("invalid report status")
	ErrInvalidReportTitle   = errors.New("invalid report title")
	ErrInvalidAreaName      = errors.New("invalid parking area name")
	ErrInvalidLicensePlate  = errors.New("invalid license plate")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
