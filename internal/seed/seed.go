package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

// 933 is the address-verification test number most PBX vendors provision;
// dials to it must never page anyone.
const defaultGlobalExemptDigits = "933"

// EnsureGlobalDefaults seeds the installation-wide rows a fresh deploy needs:
// the global exempt-digit list and the registry entries for the two known
// emergency gateway groups.
func EnsureGlobalDefaults(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureGlobalExemptDigitsTx(ctx, tx, node); err != nil {
			return err
		}
		if err := ensurePartnerGatewayTx(ctx, tx, node, calleventdomain.GroupOomaEmergency, propertydomain.VendorOoma); err != nil {
			return err
		}
		return ensurePartnerGatewayTx(ctx, tx, node, calleventdomain.GroupPeerlessEmergency, propertydomain.VendorPeerless)
	})
}

func ensureGlobalExemptDigitsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var param propertydomain.PropertyParam
	err := tx.WithContext(ctx).
		Where("property_id = ? AND name = ?", propertydomain.GlobalPropertyID, propertydomain.ParamExemptDigits).
		First(&param).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	param = propertydomain.PropertyParam{
		ID:         node.Generate(),
		PropertyID: propertydomain.GlobalPropertyID,
		Name:       propertydomain.ParamExemptDigits,
		Value:      defaultGlobalExemptDigits,
		UpdatedAt:  time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&param).Error
}

func ensurePartnerGatewayTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, groupID, kind string) error {
	var gateway propertydomain.PartnerGateway
	err := tx.WithContext(ctx).Where("group_id = ?", groupID).First(&gateway).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	gateway = propertydomain.PartnerGateway{
		ID:        node.Generate(),
		GroupID:   groupID,
		Kind:      kind,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&gateway).Error
}
