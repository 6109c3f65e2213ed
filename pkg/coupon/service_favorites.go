package coupon

import (
	"context"
	"fmt"
	"strings"
)

// AddVehicle saves a license plate for the caller.
func (service *Service) AddVehicle(ctx context.Context, licensePlate string, favorite bool) (Vehicle, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return Vehicle{}, ErrNotLoggedIn
	}
	plate := strings.TrimSpace(licensePlate)
	if plate == "" {
		return Vehicle{}, fmt.Errorf("%w: empty value", ErrInvalidLicensePlate)
	}
	record := Vehicle{
		ID:           service.newID(),
		UserID:       session.UserID.String(),
		LicensePlate: plate,
		IsFavorite:   favorite,
	}
	if err := service.store.InsertVehicle(ctx, record); err != nil {
		return Vehicle{}, err
	}
	return record, nil
}

// RemoveVehicle deletes a saved plate after checking it belongs to the caller.
func (service *Service) RemoveVehicle(ctx context.Context, vehicleID string) error {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	record, err := service.store.GetVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if record.UserID != session.UserID.String() {
		return ErrNotOwner
	}
	return service.store.DeleteVehicle(ctx, vehicleID)
}

// FavoriteVehicles lists the caller's saved plates.
func (service *Service) FavoriteVehicles(ctx context.Context) ([]Vehicle, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return service.store.ListFavoriteVehicles(ctx, session.UserID)
}

// AddParkingArea saves a parking location for the caller.
func (service *Service) AddParkingArea(ctx context.Context, name string, favorite bool) (ParkingArea, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ParkingArea{}, ErrNotLoggedIn
	}
	areaName := strings.TrimSpace(name)
	if areaName == "" {
		return ParkingArea{}, fmt.Errorf("%w: empty value", ErrInvalidAreaName)
	}
	record := ParkingArea{
		ID:         service.newID(),
		UserID:     session.UserID.String(),
		Name:       areaName,
		IsFavorite: favorite,
	}
	if err := service.store.InsertParkingArea(ctx, record); err != nil {
		return ParkingArea{}, err
	}
	return record, nil
}

// RemoveParkingArea deletes a saved location after an ownership check.
func (service *Service) RemoveParkingArea(ctx context.Context, areaID string) error {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	record, err := service.store.GetParkingArea(ctx, areaID)
	if err != nil {
		return err
	}
	if record.UserID != session.UserID.String() {
		return ErrNotOwner
	}
	return service.store.DeleteParkingArea(ctx, areaID)
}

// FavoriteParkingAreas lists the caller's saved locations.
func (service *Service) FavoriteParkingAreas(ctx context.Context) ([]ParkingArea, error) {
	session, ok := service.identity.CurrentSession(ctx)
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return service.store.ListFavoriteParkingAreas(ctx, session.UserID)
}
