package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sibuparking/coupons/internal/auth"
	"github.com/sibuparking/coupons/pkg/coupon"
	"go.uber.org/zap"
)

type apiHarness struct {
	router *gin.Engine
	store  *memStore
	tokens *auth.Manager
}

func newAPIHarness(test *testing.T) *apiHarness {
	test.Helper()
	store := newMemStore()
	service, err := coupon.NewService(store, auth.ContextIdentity{}, func() int64 { return 1_700_000_000_000 })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	tokens, err := auth.NewManager(auth.Config{SigningKey: []byte("test-secret"), Issuer: "coupond"})
	if err != nil {
		test.Fatalf("new manager: %v", err)
	}
	cfg := Config{ListenAddr: ":0", AllowedOrigins: []string{"http://localhost:8000"}}
	router := NewRouter(cfg, service, tokens, zap.NewNop())
	return &apiHarness{router: router, store: store, tokens: tokens}
}

func (harness *apiHarness) tokenFor(test *testing.T, rawUserID string, role coupon.Role) string {
	test.Helper()
	userID, err := coupon.NewUserID(rawUserID)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	token, err := harness.tokens.IssueToken(userID, role)
	if err != nil {
		test.Fatalf("issue token: %v", err)
	}
	return token
}

func (harness *apiHarness) do(test *testing.T, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	test.Helper()
	var body *bytes.Buffer
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			test.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(encoded)
	} else {
		body = bytes.NewBuffer(nil)
	}
	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthzIsPublic(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	recorder := harness.do(test, http.MethodGet, "/healthz", "", nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestAPIRequiresSession(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	recorder := harness.do(test, http.MethodGet, "/api/coupons", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		test.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestPurchaseThenListCoupons(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	token := harness.tokenFor(test, "buyer-1", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/purchases", token, gin.H{
		"items":          []gin.H{{"type": "HOUR_1", "quantity": 2}},
		"payment_method": "E_WALLET",
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var purchaseBody struct {
		TotalAmount int64 `json:"total_amount"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &purchaseBody); err != nil {
		test.Fatalf("decode purchase response: %v", err)
	}
	if purchaseBody.TotalAmount != 1700 {
		test.Fatalf("expected total 1700, got %d", purchaseBody.TotalAmount)
	}

	recorder = harness.do(test, http.MethodGet, "/api/coupons", token, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}
	var listBody struct {
		Coupons []struct {
			RemainingUses int `json:"remainingUses"`
		} `json:"coupons"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &listBody); err != nil {
		test.Fatalf("decode coupons response: %v", err)
	}
	if len(listBody.Coupons) != 2 {
		test.Fatalf("expected 2 coupons, got %d", len(listBody.Coupons))
	}
	for _, record := range listBody.Coupons {
		if record.RemainingUses != 10 {
			test.Fatalf("expected 10 remaining uses, got %d", record.RemainingUses)
		}
	}
}

func TestPurchaseRejectsEmptyCart(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	token := harness.tokenFor(test, "buyer-2", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/purchases", token, gin.H{
		"items":          []gin.H{},
		"payment_method": "E_WALLET",
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400, got %d", recorder.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		test.Fatalf("decode error response: %v", err)
	}
	if body.Error != "empty_cart" {
		test.Fatalf("expected empty_cart, got %q", body.Error)
	}
}

func TestPurchaseRejectsBadQuantity(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	token := harness.tokenFor(test, "buyer-3", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/purchases", token, gin.H{
		"items":          []gin.H{{"type": "HOUR_1", "quantity": 0}},
		"payment_method": "E_WALLET",
	})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestRedeemInsufficientBalanceConflicts(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	harness.store.coupons["c-1"] = coupon.Coupon{ID: "c-1", UserID: "driver-1", Type: coupon.TierHour1, RemainingUses: 2}
	token := harness.tokenFor(test, "driver-1", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/redemptions", token, gin.H{
		"coupon_id":          "c-1",
		"uses":               3,
		"parking_area":       "Area A",
		"parking_lot_number": "12",
		"vehicle_number":     "QSB 1234",
	})
	if recorder.Code != http.StatusConflict {
		test.Fatalf("expected 409, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRedeemHappyPath(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	harness.store.coupons["c-2"] = coupon.Coupon{ID: "c-2", UserID: "driver-2", Type: coupon.TierHour1, RemainingUses: 10}
	token := harness.tokenFor(test, "driver-2", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/redemptions", token, gin.H{
		"coupon_id":          "c-2",
		"uses":               3,
		"parking_area":       "Area A",
		"parking_lot_number": "12",
		"vehicle_number":     "QSB 1234",
		"start_time":         1_000,
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if got := harness.store.coupons["c-2"].RemainingUses; got != 7 {
		test.Fatalf("expected 7 remaining uses, got %d", got)
	}
	if len(harness.store.usages) != 1 {
		test.Fatalf("expected 1 usage, got %d", len(harness.store.usages))
	}
}

func TestVehicleLookupIsStaffOnly(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	harness.store.usages = []coupon.Usage{
		{ID: "u-1", CouponID: "c-3", VehicleNumber: "QSB 1234", Status: coupon.UsageStatusActive, TimestampUnixMilli: 1_699_999_999_000, ExpirationUnixMilli: 1_700_000_100_000},
	}

	driverToken := harness.tokenFor(test, "driver-3", coupon.RoleUser)
	recorder := harness.do(test, http.MethodGet, "/api/vehicles/QSB%201234", driverToken, nil)
	if recorder.Code != http.StatusForbidden {
		test.Fatalf("expected 403 for driver, got %d", recorder.Code)
	}

	staffToken := harness.tokenFor(test, "officer-1", coupon.RoleStaff)
	recorder = harness.do(test, http.MethodGet, "/api/vehicles/QSB%201234", staffToken, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200 for staff, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var body struct {
		Usages []struct {
			VehicleNumber string `json:"vehicleNumber"`
		} `json:"usages"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		test.Fatalf("decode lookup response: %v", err)
	}
	if len(body.Usages) != 1 || body.Usages[0].VehicleNumber != "QSB 1234" {
		test.Fatalf("unexpected usages: %+v", body.Usages)
	}
}

func TestUnknownCouponMapsToNotFound(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	token := harness.tokenFor(test, "driver-4", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/redemptions", token, gin.H{
		"coupon_id":          "missing",
		"uses":               1,
		"parking_area":       "Area A",
		"parking_lot_number": "1",
		"vehicle_number":     "QAA 1",
	})
	if recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestReportLifecycleOverHTTP(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	driverToken := harness.tokenFor(test, "driver-5", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/reports", driverToken, gin.H{
		"type":  "PARKING_ISSUE",
		"title": "Blocked bay",
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		test.Fatalf("decode report: %v", err)
	}
	if created.Status != "PENDING" {
		test.Fatalf("expected PENDING, got %q", created.Status)
	}

	recorder = harness.do(test, http.MethodPatch, "/api/reports/"+created.ID, driverToken, gin.H{"status": "RESOLVED"})
	if recorder.Code != http.StatusForbidden {
		test.Fatalf("expected 403 for driver triage, got %d", recorder.Code)
	}

	staffToken := harness.tokenFor(test, "officer-2", coupon.RoleStaff)
	recorder = harness.do(test, http.MethodPatch, "/api/reports/"+created.ID, staffToken, gin.H{"status": "RESOLVED"})
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200 for staff triage, got %d", recorder.Code)
	}
}

func TestFavoriteVehicleRoundTrip(test *testing.T) {
	test.Parallel()
	harness := newAPIHarness(test)
	token := harness.tokenFor(test, "owner-1", coupon.RoleUser)

	recorder := harness.do(test, http.MethodPost, "/api/favorites/vehicles", token, gin.H{
		"license_plate": "QSB 99",
		"favorite":      true,
	})
	if recorder.Code != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &created); err != nil {
		test.Fatalf("decode vehicle: %v", err)
	}

	recorder = harness.do(test, http.MethodGet, "/api/favorites/vehicles", token, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}

	recorder = harness.do(test, http.MethodDelete, "/api/favorites/vehicles/"+created.ID, token, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}
	if len(harness.store.vehicles) != 0 {
		test.Fatalf("expected vehicle removed, got %d", len(harness.store.vehicles))
	}
}

type memStore struct {
	coupons      map[string]coupon.Coupon
	usages       []coupon.Usage
	transactions []coupon.Transaction
	reports      []coupon.Report
	vehicles     map[string]coupon.Vehicle
	areas        map[string]coupon.ParkingArea
}

func newMemStore() *memStore {
	return &memStore{
		coupons:  make(map[string]coupon.Coupon),
		vehicles: make(map[string]coupon.Vehicle),
		areas:    make(map[string]coupon.ParkingArea),
	}
}

func (store *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore coupon.Store) error) error {
	return fn(ctx, store)
}

func (store *memStore) InsertCoupon(ctx context.Context, record coupon.Coupon) error {
	store.coupons[record.ID] = record
	return nil
}

func (store *memStore) GetCoupon(ctx context.Context, couponID coupon.CouponID) (coupon.Coupon, error) {
	record, ok := store.coupons[couponID.String()]
	if !ok {
		return coupon.Coupon{}, coupon.ErrCouponNotFound
	}
	return record, nil
}

func (store *memStore) ListActiveCoupons(ctx context.Context, userID coupon.UserID) ([]coupon.Coupon, error) {
	var records []coupon.Coupon
	for _, record := range store.coupons {
		if record.UserID == userID.String() && record.RemainingUses > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) UpdateCouponUses(ctx context.Context, couponID coupon.CouponID, remainingUses int, usedCount int) error {
	record, ok := store.coupons[couponID.String()]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	record.RemainingUses = remainingUses
	record.UsedCount = usedCount
	store.coupons[couponID.String()] = record
	return nil
}

func (store *memStore) InsertUsage(ctx context.Context, record coupon.Usage) error {
	store.usages = append(store.usages, record)
	return nil
}

func (store *memStore) ListUsagesByVehicle(ctx context.Context, vehicle coupon.VehicleNumber, status coupon.UsageStatus) ([]coupon.Usage, error) {
	var records []coupon.Usage
	for _, record := range store.usages {
		if record.VehicleNumber == vehicle.String() && record.Status == status {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) ListUsagesByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Usage, error) {
	var records []coupon.Usage
	for _, record := range store.usages {
		if record.UserID == userID.String() {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) UpdateUsageStatus(ctx context.Context, usageID string, from, to coupon.UsageStatus) error {
	for index := range store.usages {
		if store.usages[index].ID == usageID && store.usages[index].Status == from {
			store.usages[index].Status = to
			return nil
		}
	}
	return nil
}

func (store *memStore) InsertTransaction(ctx context.Context, record coupon.Transaction) error {
	store.transactions = append(store.transactions, record)
	return nil
}

func (store *memStore) ListTransactionsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Transaction, error) {
	var records []coupon.Transaction
	for _, record := range store.transactions {
		if record.UserID == userID.String() {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) InsertReport(ctx context.Context, record coupon.Report) error {
	store.reports = append(store.reports, record)
	return nil
}

func (store *memStore) ListReportsByUser(ctx context.Context, userID coupon.UserID) ([]coupon.Report, error) {
	var records []coupon.Report
	for _, record := range store.reports {
		if record.UserID == userID.String() {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) ListReports(ctx context.Context) ([]coupon.Report, error) {
	return append([]coupon.Report(nil), store.reports...), nil
}

func (store *memStore) UpdateReportStatus(ctx context.Context, reportID string, status coupon.ReportStatus) error {
	for index := range store.reports {
		if store.reports[index].ID == reportID {
			store.reports[index].Status = status
			return nil
		}
	}
	return coupon.ErrReportNotFound
}

func (store *memStore) InsertVehicle(ctx context.Context, record coupon.Vehicle) error {
	store.vehicles[record.ID] = record
	return nil
}

func (store *memStore) GetVehicle(ctx context.Context, vehicleID string) (coupon.Vehicle, error) {
	record, ok := store.vehicles[vehicleID]
	if !ok {
		return coupon.Vehicle{}, coupon.ErrVehicleNotFound
	}
	return record, nil
}

func (store *memStore) DeleteVehicle(ctx context.Context, vehicleID string) error {
	if _, ok := store.vehicles[vehicleID]; !ok {
		return coupon.ErrVehicleNotFound
	}
	delete(store.vehicles, vehicleID)
	return nil
}

func (store *memStore) ListFavoriteVehicles(ctx context.Context, userID coupon.UserID) ([]coupon.Vehicle, error) {
	var records []coupon.Vehicle
	for _, record := range store.vehicles {
		if record.UserID == userID.String() {
			records = append(records, record)
		}
	}
	return records, nil
}

func (store *memStore) InsertParkingArea(ctx context.Context, record coupon.ParkingArea) error {
	store.areas[record.ID] = record
	return nil
}

func (store *memStore) GetParkingArea(ctx context.Context, areaID string) (coupon.ParkingArea, error) {
	record, ok := store.areas[areaID]
	if !ok {
		return coupon.ParkingArea{}, coupon.ErrParkingAreaNotFound
	}
	return record, nil
}

func (store *memStore) DeleteParkingArea(ctx context.Context, areaID string) error {
	if _, ok := store.areas[areaID]; !ok {
		return coupon.ErrParkingAreaNotFound
	}
	delete(store.areas, areaID)
	return nil
}

func (store *memStore) ListFavoriteParkingAreas(ctx context.Context, userID coupon.UserID) ([]coupon.ParkingArea, error) {
	var records []coupon.ParkingArea
	for _, record := range store.areas {
		if record.UserID == userID.String() {
			records = append(records, record)
		}
	}
	return records, nil
}
