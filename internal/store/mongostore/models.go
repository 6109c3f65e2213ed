package mongostore

// Collection names and field layouts follow the document contract the staff
// lookup and purchase history views already read: ids double as document keys,
// timestamps are unix milliseconds.

const (
	collectionCoupons      = "coupons"
	collectionUsages       = "couponUsages"
	collectionTransactions = "transactions"
	collectionReports      = "reports"
	collectionVehicles     = "vehicles"
	collectionAreas        = "parkingAreas"
)

type couponDocument struct {
	ID            string `bson:"_id"`
	UserID        string `bson:"userId"`
	Type          string `bson:"type"`
	RemainingUses int    `bson:"remainingUses"`
	UsedCount     int    `bson:"usedCount"`
	PurchaseDate  int64  `bson:"purchaseDate"`
}

type usageDocument struct {
	ID               string `bson:"_id"`
	CouponID         string `bson:"couponId"`
	UserID           string `bson:"userId"`
	UsedCount        int    `bson:"usedCount"`
	ParkingArea      string `bson:"parkingArea"`
	ParkingLotNumber string `bson:"parkingLotNumber"`
	VehicleNumber    string `bson:"vehicleNumber"`
	Timestamp        int64  `bson:"timestamp"`
	Status           string `bson:"status"`
	ExpirationTime   int64  `bson:"expirationTime"`
}

type transactionLineDocument struct {
	CouponType string `bson:"couponType"`
	Quantity   int    `bson:"quantity"`
	UnitPrice  int64  `bson:"unitPrice"`
	TotalPrice int64  `bson:"totalPrice"`
}

type transactionDocument struct {
	ID            string                    `bson:"_id"`
	UserID        string                    `bson:"userId"`
	Items         []transactionLineDocument `bson:"items"`
	TotalAmount   int64                     `bson:"totalAmount"`
	PaymentMethod string                    `bson:"paymentMethod"`
	Timestamp     int64                     `bson:"timestamp"`
}

type reportDocument struct {
	ID               string   `bson:"_id"`
	UserID           string   `bson:"userId"`
	Type             string   `bson:"type"`
	Title            string   `bson:"title"`
	Description      string   `bson:"description"`
	ParkingArea      string   `bson:"parkingArea"`
	ParkingLotNumber string   `bson:"parkingLotNumber"`
	Timestamp        int64    `bson:"timestamp"`
	Status           string   `bson:"status"`
	ImageURLs        []string `bson:"imageUrls"`
}

type vehicleDocument struct {
	ID           string `bson:"_id"`
	UserID       string `bson:"userId"`
	LicensePlate string `bson:"licensePlate"`
	IsFavorite   bool   `bson:"isFavorite"`
}

type parkingAreaDocument struct {
	ID         string `bson:"_id"`
	UserID     string `bson:"userId"`
	Name       string `bson:"name"`
	IsFavorite bool   `bson:"isFavorite"`
}
