package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/sibuparking/coupons/pkg/coupon"
)

// Request payloads.

type purchaseItem struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type purchaseRequest struct {
	Items         []purchaseItem `json:"items"`
	PaymentMethod string         `json:"payment_method"`
}

type redeemRequest struct {
	CouponID         string `json:"coupon_id"`
	Uses             int    `json:"uses"`
	ParkingArea      string `json:"parking_area"`
	ParkingLotNumber string `json:"parking_lot_number"`
	VehicleNumber    string `json:"vehicle_number"`
	StartTime        int64  `json:"start_time"`
}

type reportRequest struct {
	Type             string   `json:"type"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ParkingArea      string   `json:"parking_area"`
	ParkingLotNumber string   `json:"parking_lot_number"`
	ImageURLs        []string `json:"image_urls"`
}

type reportStatusRequest struct {
	Status string `json:"status"`
}

type vehicleRequest struct {
	LicensePlate string `json:"license_plate"`
	Favorite     bool   `json:"favorite"`
}

type parkingAreaRequest struct {
	Name     string `json:"name"`
	Favorite bool   `json:"favorite"`
}

// Response views keep the document field names the mobile clients read.

func couponViews(records []coupon.Coupon) []gin.H {
	views := make([]gin.H, 0, len(records))
	for _, record := range records {
		views = append(views, gin.H{
			"id":            record.ID,
			"userId":        record.UserID,
			"type":          record.Type.String(),
			"remainingUses": record.RemainingUses,
			"usedCount":     record.UsedCount,
			"purchaseDate":  record.PurchaseDateUnixMilli,
		})
	}
	return views
}

func usageViews(records []coupon.Usage) []gin.H {
	views := make([]gin.H, 0, len(records))
	for _, record := range records {
		views = append(views, gin.H{
			"id":               record.ID,
			"couponId":         record.CouponID,
			"userId":           record.UserID,
			"usedCount":        record.UsedCount,
			"parkingArea":      record.ParkingArea,
			"parkingLotNumber": record.ParkingLotNumber,
			"vehicleNumber":    record.VehicleNumber,
			"timestamp":        record.TimestampUnixMilli,
			"status":           record.Status.String(),
			"expirationTime":   record.ExpirationUnixMilli,
		})
	}
	return views
}

func transactionViews(records []coupon.Transaction) []gin.H {
	views := make([]gin.H, 0, len(records))
	for _, record := range records {
		views = append(views, gin.H{
			"id":            record.ID,
			"userId":        record.UserID,
			"items":         record.Lines,
			"totalAmount":   record.TotalAmountCents,
			"paymentMethod": record.PaymentMethod,
			"timestamp":     record.TimestampUnixMilli,
		})
	}
	return views
}

func reportView(record coupon.Report) gin.H {
	return gin.H{
		"id":               record.ID,
		"userId":           record.UserID,
		"type":             record.Type.String(),
		"title":            record.Title,
		"description":      record.Description,
		"parkingArea":      record.ParkingArea,
		"parkingLotNumber": record.ParkingLotNumber,
		"timestamp":        record.TimestampUnixMilli,
		"status":           record.Status.String(),
		"imageUrls":        record.ImageURLs,
	}
}

func vehicleView(record coupon.Vehicle) gin.H {
	return gin.H{
		"id":           record.ID,
		"userId":       record.UserID,
		"licensePlate": record.LicensePlate,
		"isFavorite":   record.IsFavorite,
	}
}

func parkingAreaView(record coupon.ParkingArea) gin.H {
	return gin.H{
		"id":         record.ID,
		"userId":     record.UserID,
		"name":       record.Name,
		"isFavorite": record.IsFavorite,
	}
}
