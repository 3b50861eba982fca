package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/enrichment/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindExtension(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, extension string) (*domain.Extension, error) {
	extension = strings.TrimSpace(extension)
	if extension == "" {
		return nil, nil
	}

	var row domain.Extension
	err := db.WithContext(ctx).
		Where("property_id = ? AND extension = ?", propertyID, extension).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) FindRoomByExtension(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, extension string) (*domain.Room, error) {
	extension = strings.TrimSpace(extension)
	if extension == "" {
		return nil, nil
	}

	var row domain.Room
	err := db.WithContext(ctx).
		Where("property_id = ? AND extension = ?", propertyID, extension).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) FindCurrentGuest(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, roomNumber string) (*domain.Guest, error) {
	roomNumber = strings.TrimSpace(roomNumber)
	if roomNumber == "" {
		return nil, nil
	}

	var row domain.Guest
	err := db.WithContext(ctx).
		Where("property_id = ? AND room_number = ? AND moved_out_at IS NULL", propertyID, roomNumber).
		Order("moved_in_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
