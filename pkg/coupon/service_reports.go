package coupon

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ReportInput carries the caller-supplied fields of a new issue report.
type ReportInput struct {
	Type             ReportType
	Title            string
	Description      string
	ParkingArea      string
	ParkingLotNumber string
	ImageURLs        []string
}

// CreateReport files a new issue report for the caller with status pending.
func (service *Service) CreateReport(ctx context.Context, input ReportInput) (Report, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return Report{}, ErrNotLoggedIn
	}
	if strings.TrimSpace(input.Title) == "" {
		return Report{}, fmt.Errorf("%w: empty title", ErrInvalidReportTitle)
	}
	if _, err := ParseReportType(input.Type.String()); err != nil {
		return Report{}, err
	}
	record := Report{
		ID:                 service.newID(),
		UserID:             session.UserID.String(),
		Type:               input.Type,
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		ParkingArea:        strings.TrimSpace(input.ParkingArea),
		ParkingLotNumber:   strings.TrimSpace(input.ParkingLotNumber),
		TimestampUnixMilli: service.nowFn(),
		Status:             ReportStatusPending,
		ImageURLs:          input.ImageURLs,
	}
	operationError := service.store.InsertReport(ctx, record)
	service.logOperation(ctx, OperationLog{
		Operation: operationReport,
		UserID:    session.UserID,
		Error:     operationError,
	})
	if operationError != nil {
		return Report{}, operationError
	}
	return record, nil
}

// ListReports returns reports visible to the caller, newest first: staff see
// every report, drivers only their own.
func (service *Service) ListReports(ctx context.Context) ([]Report, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	var (
		reports []Report
		err     error
	)
	if session.Role == RoleStaff {
		reports, err = service.store.ListReports(ctx)
	} else {
		reports, err = service.store.ListReportsByUser(ctx, session.UserID)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(left, right int) bool {
		return reports[left].TimestampUnixMilli > reports[right].TimestampUnixMilli
	})
	return reports, nil
}

// UpdateReportStatus moves a report through triage. Staff only.
func (service *Service) UpdateReportStatus(ctx context.Context, reportID string, status ReportStatus) error {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	if session.Role != RoleStaff {
		return ErrStaffOnly
	}
	if _, err := ParseReportStatus(status.String()); err != nil {
		return err
	}
	operationError := service.store.UpdateReportStatus(ctx, reportID, status)
	service.logOperation(ctx, OperationLog{
		Operation: operationReportTriage,
		UserID:    session.UserID,
		Error:     operationError,
	})
	return operationError
}
