package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sibuparking/coupons/pkg/coupon"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
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
	errorCodeDecode         = "decode"
	errorCodeTx             = "tx"
)

// Store implements coupon.Store on a MongoDB database.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// New returns a Store over the named database.
func New(client *mongo.Client, databaseName string) *Store {
	return &Store{client: client, database: client.Database(databaseName)}
}

// WithTx executes fn inside a server-side multi-document transaction. The
// session travels in the context, so fn receives the same Store value.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore coupon.Store) error) error {
	session, err := store.client.StartSession()
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeTx, unavailable(err))
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sessionContext mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessionContext, store)
	})
	return err
}

func (store *Store) InsertCoupon(ctx context.Context, record coupon.Coupon) error {
	document := couponDocument{
		ID:            record.ID,
		UserID:        record.UserID,
		Type:          record.Type.String(),
		RemainingUses: record.RemainingUses,
		UsedCount:     record.UsedCount,
		PurchaseDate:  record.PurchaseDateUnixMilli,
	}
	if _, err := store.database.Collection(collectionCoupons).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectCoupon, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetCoupon(ctx context.Context, couponID coupon.CouponID) (coupon.Coupon, error) {
	var document couponDocument
	err := store.database.Collection(collectionCoupons).
		FindOne(ctx, bson.M{"_id": couponID.String()}).
		Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeGet, coupon.ErrCouponNotFound)
	}
	if err != nil {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeGet, unavailable(err))
	}
	return mapCoupon(document)
}

func (store *Store) ListActiveCoupons(ctx context.Context, userID coupon.UserID) ([]coupon.Coupon, error) {
	filter := bson.M{"userId": userID.String(), "remainingUses": bson.M{"$gt": 0}}
	cursor, err := store.database.Collection(collectionCoupons).Find(ctx, filter)
	if err != nil {
		return nil, wrapStoreError(errorSubjectCoupon, errorCodeList, unavailable(err))
	}
	var documents []couponDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectCoupon, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Coupon, 0, len(documents))
	for _, document := range documents {
		record, err := mapCoupon(document)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (store *Store) UpdateCouponUses(ctx context.Context, couponID coupon.CouponID, remainingUses int, usedCount int) error {
	result, err := store.database.Collection(collectionCoupons).UpdateOne(ctx,
		bson.M{"_id": couponID.String()},
		bson.M{"$set": bson.M{"remainingUses": remainingUses, "usedCount": usedCount}},
	)
	if err != nil {
		return wrapStoreError(errorSubjectCoupon, errorCodeUpdate, unavailable(err))
	}
	if result.MatchedCount == 0 {
		return wrapStoreError(errorSubjectCoupon, errorCodeUpdate, coupon.ErrCouponNotFound)
	}
	return nil
}

func (store *Store) InsertUsage(ctx context.Context, record coupon.Usage) error {
	document := usageDocument{
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
	if _, err := store.database.Collection(collectionUsages).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectUsage, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListUsagesByVehicle(ctx context.Context, vehicle coupon.VehicleNumber, status coupon.UsageStatus) ([]coupon.Usage, error) {
	filter := bson.M{"vehicleNumber": vehicle.String(), "status": status.String()}
	return store.listUsages(ctx, filter)
}

func (store *Store) ListUsagesByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Usage, error) {
	return store.listUsages(ctx, bson.M{"userId": userID.String()})
}

func (store *Store) listUsages(ctx context.Context, filter bson.M) ([]coupon.Usage, error) {
	cursor, err := store.database.Collection(collectionUsages).Find(ctx, filter)
	if err != nil {
		return nil, wrapStoreError(errorSubjectUsage, errorCodeList, unavailable(err))
	}
	var documents []usageDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectUsage, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Usage, 0, len(documents))
	for _, document := range documents {
		records = append(records, coupon.Usage{
			ID:                  document.ID,
			CouponID:            document.CouponID,
			UserID:              document.UserID,
			UsedCount:           document.UsedCount,
			ParkingArea:         document.ParkingArea,
			ParkingLotNumber:    document.ParkingLotNumber,
			VehicleNumber:       document.VehicleNumber,
			TimestampUnixMilli:  document.Timestamp,
			Status:              coupon.UsageStatus(document.Status),
			ExpirationUnixMilli: document.ExpirationTime,
		})
	}
	return records, nil
}

// UpdateUsageStatus is a compare-and-set on the status field. Zero matched
// documents is not an error: another reader already moved the record on.
func (store *Store) UpdateUsageStatus(ctx context.Context, usageID string, from, to coupon.UsageStatus) error {
	_, err := store.database.Collection(collectionUsages).UpdateOne(ctx,
		bson.M{"_id": usageID, "status": from.String()},
		bson.M{"$set": bson.M{"status": to.String()}},
	)
	if err != nil {
		return wrapStoreError(errorSubjectUsage, errorCodeUpdate, unavailable(err))
	}
	return nil
}

func (store *Store) InsertTransaction(ctx context.Context, record coupon.Transaction) error {
	lines := make([]transactionLineDocument, 0, len(record.Lines))
	for _, line := range record.Lines {
		lines = append(lines, transactionLineDocument{
			CouponType: line.CouponType,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPriceCents,
			TotalPrice: line.TotalPriceCents,
		})
	}
	document := transactionDocument{
		ID:            record.ID,
		UserID:        record.UserID,
		Items:         lines,
		TotalAmount:   record.TotalAmountCents,
		PaymentMethod: record.PaymentMethod,
		Timestamp:     record.TimestampUnixMilli,
	}
	if _, err := store.database.Collection(collectionTransactions).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListTransactionsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Transaction, error) {
	cursor, err := store.database.Collection(collectionTransactions).Find(ctx, bson.M{"userId": userID.String()})
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, unavailable(err))
	}
	var documents []transactionDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Transaction, 0, len(documents))
	for _, document := range documents {
		lines := make([]coupon.TransactionLine, 0, len(document.Items))
		for _, item := range document.Items {
			lines = append(lines, coupon.TransactionLine{
				CouponType:      item.CouponType,
				Quantity:        item.Quantity,
				UnitPriceCents:  item.UnitPrice,
				TotalPriceCents: item.TotalPrice,
			})
		}
		records = append(records, coupon.Transaction{
			ID:                 document.ID,
			UserID:             document.UserID,
			Lines:              lines,
			TotalAmountCents:   document.TotalAmount,
			PaymentMethod:      document.PaymentMethod,
			TimestampUnixMilli: document.Timestamp,
		})
	}
	return records, nil
}

func (store *Store) InsertReport(ctx context.Context, record coupon.Report) error {
	urls := record.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	document := reportDocument{
		ID:               record.ID,
		UserID:           record.UserID,
		Type:             record.Type.String(),
		Title:            record.Title,
		Description:      record.Description,
		ParkingArea:      record.ParkingArea,
		ParkingLotNumber: record.ParkingLotNumber,
		Timestamp:        record.TimestampUnixMilli,
		Status:           record.Status.String(),
		ImageURLs:        urls,
	}
	if _, err := store.database.Collection(collectionReports).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectReport, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) ListReportsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Report, error) {
	return store.listReports(ctx, bson.M{"userId": userID.String()})
}

func (store *Store) ListReports(ctx context.Context) ([]coupon.Report, error) {
	return store.listReports(ctx, bson.M{})
}

func (store *Store) listReports(ctx context.Context, filter bson.M) ([]coupon.Report, error) {
	cursor, err := store.database.Collection(collectionReports).Find(ctx, filter)
	if err != nil {
		return nil, wrapStoreError(errorSubjectReport, errorCodeList, unavailable(err))
	}
	var documents []reportDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectReport, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Report, 0, len(documents))
	for _, document := range documents {
		reportType, err := coupon.ParseReportType(document.Type)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReport, errorCodeDecode, err)
		}
		status, err := coupon.ParseReportStatus(document.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReport, errorCodeDecode, err)
		}
		records = append(records, coupon.Report{
			ID:                 document.ID,
			UserID:             document.UserID,
			Type:               reportType,
			Title:              document.Title,
			Description:        document.Description,
			ParkingArea:        document.ParkingArea,
			ParkingLotNumber:   document.ParkingLotNumber,
			TimestampUnixMilli: document.Timestamp,
			Status:             status,
			ImageURLs:          document.ImageURLs,
		})
	}
	return records, nil
}

func (store *Store) UpdateReportStatus(ctx context.Context, reportID string, status coupon.ReportStatus) error {
	result, err := store.database.Collection(collectionReports).UpdateOne(ctx,
		bson.M{"_id": reportID},
		bson.M{"$set": bson.M{"status": status.String()}},
	)
	if err != nil {
		return wrapStoreError(errorSubjectReport, errorCodeUpdate, unavailable(err))
	}
	if result.MatchedCount == 0 {
		return wrapStoreError(errorSubjectReport, errorCodeUpdate, coupon.ErrReportNotFound)
	}
	return nil
}

func (store *Store) InsertVehicle(ctx context.Context, record coupon.Vehicle) error {
	document := vehicleDocument{
		ID:           record.ID,
		UserID:       record.UserID,
		LicensePlate: record.LicensePlate,
		IsFavorite:   record.IsFavorite,
	}
	if _, err := store.database.Collection(collectionVehicles).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetVehicle(ctx context.Context, vehicleID string) (coupon.Vehicle, error) {
	var document vehicleDocument
	err := store.database.Collection(collectionVehicles).
		FindOne(ctx, bson.M{"_id": vehicleID}).
		Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return coupon.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, coupon.ErrVehicleNotFound)
	}
	if err != nil {
		return coupon.Vehicle{}, wrapStoreError(errorSubjectVehicle, errorCodeGet, unavailable(err))
	}
	return coupon.Vehicle{ID: document.ID, UserID: document.UserID, LicensePlate: document.LicensePlate, IsFavorite: document.IsFavorite}, nil
}

func (store *Store) DeleteVehicle(ctx context.Context, vehicleID string) error {
	result, err := store.database.Collection(collectionVehicles).DeleteOne(ctx, bson.M{"_id": vehicleID})
	if err != nil {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, unavailable(err))
	}
	if result.DeletedCount == 0 {
		return wrapStoreError(errorSubjectVehicle, errorCodeDelete, coupon.ErrVehicleNotFound)
	}
	return nil
}

func (store *Store) ListFavoriteVehicles(ctx context.Context, userID coupon.UserID) ([]coupon.Vehicle, error) {
	cursor, err := store.database.Collection(collectionVehicles).Find(ctx, bson.M{"userId": userID.String()})
	if err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, unavailable(err))
	}
	var documents []vehicleDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectVehicle, errorCodeList, unavailable(err))
	}
	records := make([]coupon.Vehicle, 0, len(documents))
	for _, document := range documents {
		records = append(records, coupon.Vehicle{ID: document.ID, UserID: document.UserID, LicensePlate: document.LicensePlate, IsFavorite: document.IsFavorite})
	}
	return records, nil
}

func (store *Store) InsertParkingArea(ctx context.Context, record coupon.ParkingArea) error {
	document := parkingAreaDocument{
		ID:         record.ID,
		UserID:     record.UserID,
		Name:       record.Name,
		IsFavorite: record.IsFavorite,
	}
	if _, err := store.database.Collection(collectionAreas).InsertOne(ctx, document); err != nil {
		return wrapStoreError(errorSubjectParkingArea, errorCodeInsert, unavailable(err))
	}
	return nil
}

func (store *Store) GetParkingArea(ctx context.Context, areaID string) (coupon.ParkingArea, error) {
	var document parkingAreaDocument
	err := store.database.Collection(collectionAreas).
		FindOne(ctx, bson.M{"_id": areaID}).
		Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return coupon.ParkingArea{}, wrapStoreError(errorSubjectParkingArea, errorCodeGet, coupon.ErrParkingAreaNotFound)
	}
	if err != nil {
		return coupon.ParkingArea{}, wrapStoreError(errorSubjectParkingArea, errorCodeGet, unavailable(err))
	}
	return coupon.ParkingArea{ID: document.ID, UserID: document.UserID, Name: document.Name, IsFavorite: document.IsFavorite}, nil
}

func (store *Store) DeleteParkingArea(ctx context.Context, areaID string) error {
	result, err := store.database.Collection(collectionAreas).DeleteOne(ctx, bson.M{"_id": areaID})
	if err != nil {
		return wrapStoreError(errorSubjectParkingArea, errorCodeDelete, unavailable(err))
	}
	if result.DeletedCount == 0 {
		return wrapStoreError(errorSubjectParkingArea, errorCodeDelete, coupon.ErrParkingAreaNotFound)
	}
	return nil
}

func (store *Store) ListFavoriteParkingAreas(ctx context.Context, userID coupon.UserID) ([]coupon.ParkingArea, error) {
	cursor, err := store.database.Collection(collectionAreas).Find(ctx, bson.M{"userId": userID.String()})
	if err != nil {
		return nil, wrapStoreError(errorSubjectParkingArea, errorCodeList, unavailable(err))
	}
	var documents []parkingAreaDocument
	if err := cursor.All(ctx, &documents); err != nil {
		return nil, wrapStoreError(errorSubjectParkingArea, errorCodeList, unavailable(err))
	}
	records := make([]coupon.ParkingArea, 0, len(documents))
	for _, document := range documents {
		records = append(records, coupon.ParkingArea{ID: document.ID, UserID: document.UserID, Name: document.Name, IsFavorite: document.IsFavorite})
	}
	return records, nil
}

func mapCoupon(document couponDocument) (coupon.Coupon, error) {
	tier, err := coupon.ParseTier(document.Type)
	if err != nil {
		return coupon.Coupon{}, wrapStoreError(errorSubjectCoupon, errorCodeDecode, err)
	}
	return coupon.Coupon{
		ID:                    document.ID,
		UserID:                document.UserID,
		Type:                  tier,
		RemainingUses:         document.RemainingUses,
		UsedCount:             document.UsedCount,
		PurchaseDateUnixMilli: document.PurchaseDate,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return coupon.WrapError(errorOperationStore, subject, code, err)
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", coupon.ErrStoreUnavailable, err)
}
