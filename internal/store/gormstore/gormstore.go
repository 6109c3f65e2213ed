package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sibuparking/coupons/pkg/coupon"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore     = "store"
	errorSubjectCoupon      = "coupon"
	errorSubjectUsage       = "usage"
	errorSubjectTransaction = "transaction"
	errorSubjectReport      = "report"
	errorSubjectVehicle     = "vehicle"
	errorSubjectParkingArea = "parking_area"
	errorCodeInsert         = "insert"
	errorCodeGet            = "get"
	errorCodeList           = "list"
	errorCodeUpdate         = "update"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeEncode         = "encode"
	errorCodeDecode         = "decode"
)

// Store implements coupon.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema for every table the store touches.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Coupon{}, &Usage{}, &Transaction{}, &Report{}, &Vehicle{}, &ParkingArea{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore coupon.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) InsertCoupon(ctx context.Context, record coupon.Coupon) error {
	model := Coupon{
		ID:            record.ID,
		UserID:        record.UserID,
		Type:          record.Type.String(),
		RemainingUses: record.RemainingUses,
		UsedCount:     record.UsedCount,
		PurchaseDate:  record.PurchaseDateUnixMilli,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isDuplicateKey(err) {
		return wrapStoreError(errorSubjectCoupon, errorCodeDuplicate, unavailable(err))
	}
	if err != nil {
		return wrapStoreError(errorSubjectCoupon, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetCoupon(ctx context.Context, couponID coupon.CouponID) (coupon.Coupon, error) {
	var model Coupon
	err := store.db.WithContext(ctx).Where("id = ?", couponID.String()).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeGet, coupon.ErrCouponNotFound)
	}
	if err != nil {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeGet, unavailable(err))
	}
	return mapCoupon(model)
}

func (store *Store) ListActiveCoupons(ctx context.Context, userID coupon.UserID) ([]coupon.Coupon, error) {
	var rows []Coupon
	err := store.db.WithContext(ctx).
		Where("user_id = ? AND remaining_uses > 0", userID.String()).
		Order("purchase_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCoupon, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		record, err := mapCoupon(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (store *Store) UpdateCouponUses(ctx context.Context, couponID coupon.CouponID, remainingUses int, usedCount int) error {
	result := store.db.WithContext(ctx).
		Model(&Coupon{}).
		Where("id = ?", couponID.String()).
		Updates(map[string]interface{}{
			"remaining_uses": remainingUses,
			"used_count":     usedCount,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectCoupon, errorCodeUpdate, unavailable(result.Error))
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectCoupon, errorCodeUpdate, coupon.ErrCouponNotFound)
	}
	return nil
}

func (store *Store) InsertUsage(ctx context.Context, record coupon.Usage) error {
	model := Usage{
		ID:               record.ID,
		CouponID:         record.CouponID,
		UserID:           record.UserID,
		UsedCount:        record.UsedCount,
		ParkingArea:      record.ParkingArea,
		ParkingLotNumber: record.ParkingLotNumber,
		VehicleNumber:    record.VehicleNumber,
		Timestamp:        record.TimestampUnixMilli,
		Status:           record.Status.String(),
		ExpirationTime:   record.ExpirationUnixMilli,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectUsage, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListUsagesByVehicle(ctx context.Context, vehicle coupon.VehicleNumber, status coupon.UsageStatus) ([]coupon.Usage, error) {
	var rows []Usage
	err := store.db.WithContext(ctx).
		Where("vehicle_number = ? AND status = ?", vehicle.String(), status.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUsage, errorCodeList, unavailable(err))
	}
	return mapUsages(rows), nil
}

func (store *Store) ListUsagesByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Usage, error) {
	var rows []Usage
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUsage, errorCodeList, unavailable(err))
	}
	return mapUsages(rows), nil
}

// UpdateUsageStatus is a compare-and-set on the status column. Zero matched
// rows is not an error: another reader already moved the record on.
func (store *Store) UpdateUsageStatus(ctx context.Context, usageID string, from, to coupon.UsageStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Usage{}).
		Where("id = ? AND status = ?", usageID, from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectUsage, errorCodeUpdate, unavailable(result.Error))
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, record coupon.Transaction) error {
	items, err := json.Marshal(record.Lines)
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeEncode, err)
	}
	model := Transaction{
		ID:            record.ID,
		UserID:        record.UserID,
		Items:         datatypes.JSON(items),
		TotalAmount:   record.TotalAmountCents,
		PaymentMethod: record.PaymentMethod,
		Timestamp:     record.TimestampUnixMilli,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListTransactionsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Transaction, error) {
	var rows []Transaction
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Transaction, 0, len(rows))
	for _, row := range rows {
		var lines []coupon.TransactionLine
		if len(row.Items) > 0 {
			if err := json.Unmarshal(row.Items, &lines); err != nil {
				return nil, wrapStoreError(errorSubjectTransaction, errorCodeDecode, err)
			}
		}
		records = append(records, coupon.Transaction{
			ID:                 row.ID,
			UserID:             row.UserID,
			Lines:              lines,
			TotalAmountCents:   row.TotalAmount,
			PaymentMethod:      row.PaymentMethod,
			TimestampUnixMilli: row.Timestamp,
		})
	}
	return records, nil
}

func (store *Store) InsertReport(ctx context.Context, record coupon.Report) error {
	urls := record.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return wrapStoreError(errorSubjectReport, errorCodeEncode, err)
	}
	model := Report{
		ID:               record.ID,
		UserID:           record.UserID,
		Type:             record.Type.String(),
		Title:            record.Title,
		Description:      record.Description,
		ParkingArea:      record.ParkingArea,
		ParkingLotNumber: record.ParkingLotNumber,
		Timestamp:        record.TimestampUnixMilli,
		Status:           record.Status.String(),
		ImageURLs:        datatypes.JSON(encoded),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectReport, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListReportsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Report, error) {
	var rows []Report
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectReport, errorCodeList, unavailable(err))
	}
	return mapReports(rows)
}

func (store *Store) ListReports(ctx context.Context) ([]coupon.Report, error) {
	var rows []Report
	if err := store.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectReport, errorCodeList, unavailable(err))
	}
	return mapReports(rows)
}

func (store *Store) UpdateReportStatus(ctx context.Context, reportID string, status coupon.ReportStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Report{}).
		Where("id = ?", reportID).
		Update("status", status.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectReport, errorCodeUpdate, unavailable(result.Error))
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReport, errorCodeUpdate, coupon.ErrReportNotFound)
	}
	return nil
}

func (store *Store) InsertVehicle(ctx context.Context, record coupon.Vehicle) error {
	model := Vehicle{
		ID:           record.ID,
		UserID:       record.UserID,
		LicensePlate: record.LicensePlate,
		IsFavorite:   record.IsFavorite,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetVehicle(ctx context.Context, vehicleID string) (coupon.Vehicle, error) {
	var model Vehicle
	err := store.db.WithContext(ctx).Where("id = ?", vehicleID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return coupon.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, coupon.ErrVehicleNotFound)
	}
	if err != nil {
		return coupon.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, unavailable(err))
	}
	return coupon.Vehicle{ID: model.ID, UserID: model.UserID, LicensePlate: model.LicensePlate, IsFavorite: model.IsFavorite}, nil
}

func (store *Store) DeleteVehicle(ctx context.Context, vehicleID string) error {
	result := store.db.WithContext(ctx).Where("id = ?", vehicleID).Delete(&Vehicle{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, unavailable(result.Error))
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, coupon.ErrVehicleNotFound)
	}
	return nil
}

func (store *Store) ListFavoriteVehicles(ctx context.Context, userID coupon.UserID) ([]coupon.Vehicle, error) {
	var rows []Vehicle
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Vehicle, 0, len(rows))
	for _, row := range rows {
		records = append(records, coupon.Vehicle{ID: row.ID, UserID: row.UserID, LicensePlate: row.LicensePlate, IsFavorite: row.IsFavorite})
	}
	return records, nil
}

func (store *Store) InsertParkingArea(ctx context.Context, record coupon.ParkingArea) error {
	model := ParkingArea{
		ID:         record.ID,
		UserID:     record.UserID,
		Name:       record.Name,
		IsFavorite: record.IsFavorite,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectParkingArea, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetParkingArea(ctx context.Context, areaID string) (coupon.ParkingArea, error) {
	var model ParkingArea
	err := store.db.WithContext(ctx).Where("id = ?", areaID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return coupon.ParkingArea{}, wrapStoreError(errorSubjectParkingArea, errorCodeGet, coupon.ErrParkingAreaNotFound)
	}
	if err != nil {
		return coupon.ParkingArea{}, wrapStoreError(errorSubjectParkingArea, errorCodeGet, unavailable(err))
	}
	return coupon.ParkingArea{ID: model.ID, UserID: model.UserID, Name: model.Name, IsFavorite: model.IsFavorite}, nil
}

func (store *Store) DeleteParkingArea(ctx context.Context, areaID string) error {
	result := store.db.WithContext(ctx).Where("id = ?", areaID).Delete(&ParkingArea{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectParkingArea, errorCodeDelete, unavailable(result.Error))
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectParkingArea, errorCodeDelete, coupon.ErrParkingAreaNotFound)
	}
	return nil
}

func (store *Store) ListFavoriteParkingAreas(ctx context.Context, userID coupon.UserID) ([]coupon.ParkingArea, error) {
	var rows []ParkingArea
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectParkingArea, errorCodeList, unavailable(err))
	}
	records := make([]coupon.ParkingArea, 0, len(rows))
	for _, row := range rows {
		records = append(records, coupon.ParkingArea{ID: row.ID, UserID: row.UserID, Name: row.Name, IsFavorite: row.IsFavorite})
	}
	return records, nil
}

func mapCoupon(row Coupon) (coupon.Coupon, error) {
	tier, err := coupon.ParseTier(row.Type)
	if err != nil {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeDecode, err)
	}
	return coupon.Coupon{
		ID:                    row.ID,
		UserID:                row.UserID,
		Type:                  tier,
		RemainingUses:         row.RemainingUses,
		UsedCount:             row.UsedCount,
		PurchaseDateUnixMilli: row.PurchaseDate,
	}, nil
}

func mapUsages(rows []Usage) []coupon.Usage {
	records := make([]coupon.Usage, 0, len(rows))
	for _, row := range rows {
		records = append(records, coupon.Usage{
			ID:                  row.ID,
			CouponID:            row.CouponID,
			UserID:              row.UserID,
			UsedCount:           row.UsedCount,
			ParkingArea:         row.ParkingArea,
			ParkingLotNumber:    row.ParkingLotNumber,
			VehicleNumber:       row.VehicleNumber,
			TimestampUnixMilli:  row.Timestamp,
			Status:              coupon.UsageStatus(row.Status),
			ExpirationUnixMilli: row.ExpirationTime,
		})
	}
	return records
}

func mapReports(rows []Report) ([]coupon.Report, error) {
	records := make([]coupon.Report, 0, len(rows))
	for _, row := range rows {
		var urls []string
		if len(row.ImageURLs) > 0 {
			if err := json.Unmarshal(row.ImageURLs, &urls); err != nil {
				return nil, wrapStoreError(errorSubjectReport, errorCodeDecode, err)
			}
		}
		reportType, err := coupon.ParseReportType(row.Type)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReport, errorCodeDecode, err)
		}
		status, err := coupon.ParseReportStatus(row.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReport, errorCodeDecode, err)
		}
		records = append(records, coupon.Report{
			ID:                 row.ID,
			UserID:             row.UserID,
			Type:               reportType,
			Title:              row.Title,
			Description:        row.Description,
			ParkingArea:        row.ParkingArea,
			ParkingLotNumber:   row.ParkingLotNumber,
			TimestampUnixMilli: row.Timestamp,
			Status:             status,
			ImageURLs:          urls,
		})
	}
	return records, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return coupon.WrapError(errorOperationStore, subject, code, err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", coupon.ErrStoreUnavailable, err)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
