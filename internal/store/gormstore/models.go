package gormstore

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Coupon mirrors the coupons table. Timestamps are unix milliseconds to match
// the wire contract the mobile clients already rely on.
type Coupon struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"not null;index:idx_coupons_user"`
	Type          string `gorm:"not null"`
	RemainingUses int    `gorm:"not null"`
	UsedCount     int    `gorm:"not null"`
	PurchaseDate  int64  `gorm:"not null"`
}

func (Coupon) TableName() string { return "coupons" }

func (record *Coupon) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// Usage mirrors the coupon_usages table.
type Usage struct {
	ID               string `gorm:"primaryKey"`
	CouponID         string `gorm:"not null;index:idx_usages_coupon"`
	UserID           string `gorm:"not null;index:idx_usages_user"`
	UsedCount        int    `gorm:"not null"`
	ParkingArea      string `gorm:"not null"`
	ParkingLotNumber string `gorm:"not null"`
	VehicleNumber    string `gorm:"not null;index:idx_usages_vehicle_status,priority:1"`
	Timestamp        int64  `gorm:"not null"`
	Status           string `gorm:"not null;index:idx_usages_vehicle_status,priority:2"`
	ExpirationTime   int64  `gorm:"not null"`
}

func (Usage) TableName() string { return "coupon_usages" }

func (record *Usage) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// Transaction mirrors the transactions table.
type Transaction struct {
	ID            string         `gorm:"primaryKey"`
	UserID        string         `gorm:"not null;index:idx_transactions_user"`
	Items         datatypes.JSON `gorm:"not null"`
	TotalAmount   int64          `gorm:"not null"`
	PaymentMethod string         `gorm:"not null"`
	Timestamp     int64          `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

func (record *Transaction) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// Report mirrors the reports table.
type Report struct {
	ID               string         `gorm:"primaryKey"`
	UserID           string         `gorm:"not null;index:idx_reports_user"`
	Type             string         `gorm:"not null"`
	Title            string         `gorm:"not null"`
	Description      string         `gorm:"not null"`
	ParkingArea      string         `gorm:"not null"`
	ParkingLotNumber string         `gorm:"not null"`
	Timestamp        int64          `gorm:"not null"`
	Status           string         `gorm:"not null"`
	ImageURLs        datatypes.JSON `gorm:"not null"`
}

func (Report) TableName() string { return "reports" }

func (record *Report) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// Vehicle mirrors the vehicles table.
type Vehicle struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"not null;index:idx_vehicles_user"`
	LicensePlate string `gorm:"not null"`
	IsFavorite   bool   `gorm:"not null"`
}

func (Vehicle) TableName() string { return "vehicles" }

func (record *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}

// ParkingArea mirrors the parking_areas table.
type ParkingArea struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"not null;index:idx_parking_areas_user"`
	Name       string `gorm:"not null"`
	IsFavorite bool   `gorm:"not null"`
}

func (ParkingArea) TableName() string { return "parking_areas" }

func (record *ParkingArea) BeforeCreate(tx *gorm.DB) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return nil
}
