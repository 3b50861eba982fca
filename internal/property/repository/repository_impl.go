package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stayware/callguard/internal/property/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *repo) FindPartnerGateway(ctx context.Context, db *gorm.DB, groupID string) (*domain.PartnerGateway, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, nil
	}

	var gateway domain.PartnerGateway
	err := db.WithContext(ctx).
		Where("group_id = ? AND active = ?", groupID, true).
		First(&gateway).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gateway, nil
}

func (r *repo) FindGatewayAccountByCode(ctx context.Context, db *gorm.DB, code string) (*domain.GatewayAccount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	var account domain.GatewayAccount
	err := db.WithContext(ctx).
		Where("enterprise_codes = ?", code).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) ListGatewayAccountsByGroup(ctx context.Context, db *gorm.DB, groupID string) ([]*domain.GatewayAccount, error) {
	var accounts []*domain.GatewayAccount
	err := db.WithContext(ctx).
		Where("group_id = ?", strings.TrimSpace(groupID)).
		Order("id ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) FindUserExtensionMap(ctx context.Context, db *gorm.DB, userID string) (*domain.UserExtensionMap, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	var mapping domain.UserExtensionMap
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *repo) FindLinePortMap(ctx context.Context, db *gorm.DB, linePort string) (*domain.LinePortMap, error) {
	linePort = strings.TrimSpace(linePort)
	if linePort == "" {
		return nil, nil
	}

	var mapping domain.LinePortMap
	err := db.WithContext(ctx).
		Where("line_port = ?", linePort).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *repo) FindTimezone(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) (*domain.PropertyTimezone, error) {
	var tz domain.PropertyTimezone
	err := db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		First(&tz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tz, nil
}

func (r *repo) FindParam(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, name string) (*domain.PropertyParam, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var param domain.PropertyParam
	err := db.WithContext(ctx).
		Where("property_id = ? AND name = ?", propertyID, name).
		First(&param).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &param, nil
}
