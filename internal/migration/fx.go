package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	alertdomain "github.com/stayware/callguard/internal/alert/domain"
	dispatchdomain "github.com/stayware/callguard/internal/dispatch/domain"
	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
	"github.com/stayware/callguard/internal/events"
	notifyqdomain "github.com/stayware/callguard/internal/notifyq/domain"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
	"github.com/stayware/callguard/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// Versioned SQL migrations are postgres-only. Other dialects
		// (sqlite for tests and single-box installs, mysql) build their
		// schema from the models directly.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(allModels()...); err != nil {
				return err
			}
		}

		return seed.EnsureGlobalDefaults(conn)
	}),
)

func allModels() []any {
	return []any{
		&propertydomain.Property{},
		&propertydomain.PartnerGateway{},
		&propertydomain.GatewayAccount{},
		&propertydomain.UserExtensionMap{},
		&propertydomain.LinePortMap{},
		&propertydomain.PropertyTimezone{},
		&propertydomain.PropertyParam{},
		&enrichmentdomain.Extension{},
		&enrichmentdomain.Room{},
		&enrichmentdomain.Guest{},
		&alertdomain.AlertRecord{},
		&dispatchdomain.ChannelDefaults{},
		&dispatchdomain.ChannelOverride{},
		&notifyqdomain.EmailQueueItem{},
		&notifyqdomain.PhoneCallSchedule{},
		&notifyqdomain.SMSSchedule{},
		&events.EventOutbox{},
	}
}
