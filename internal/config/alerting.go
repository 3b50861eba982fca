package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AlertingConfig carries operator-tunable alerting behavior: the channel
// fallbacks used when a property has no defaults row, and the formatting
// values that older revisions kept in ambient process state. It lives in
// alerting.yml and hot-reloads without a restart.
type AlertingConfig struct {
	Channels        ChannelFallbacks `mapstructure:"channels"`
	SubjectPrefix   string           `mapstructure:"subjectPrefix"`
	AuditTimeLayout string           `mapstructure:"auditTimeLayout"`
	AutoAckActor    string           `mapstructure:"autoAckActor"`
}

// ChannelFallbacks are the process-level channel flags applied when neither
// a property default nor an alert-type override exists.
type ChannelFallbacks struct {
	Email     bool `mapstructure:"email"`
	Phone     bool `mapstructure:"phone"`
	SMS       bool `mapstructure:"sms"`
	Popup     bool `mapstructure:"popup"`
	EventFeed bool `mapstructure:"eventFeed"`
}

func DefaultAlertingConfig() AlertingConfig {
	return AlertingConfig{
		Channels: ChannelFallbacks{
			Email: true,
			Popup: true,
		},
		SubjectPrefix:   "911 ALERT",
		AuditTimeLayout: "2006-01-02 15:04:05",
		AutoAckActor:    "auto",
	}
}

// AlertingConfigHolder hands out the current alerting config; reads are
// lock-free so the pipeline can consult it per event.
type AlertingConfigHolder struct {
	current atomic.Value // holds AlertingConfig
}

func NewAlertingConfigHolder() (*AlertingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("alerting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/callguard/config") // Volume-mounted config
	v.AddConfigPath("/etc/callguard")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("CALLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAlertingConfig()
	v.SetDefault("alerting.channels", defaults.Channels)
	v.SetDefault("alerting.subjectPrefix", defaults.SubjectPrefix)
	v.SetDefault("alerting.auditTimeLayout", defaults.AuditTimeLayout)
	v.SetDefault("alerting.autoAckActor", defaults.AutoAckActor)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AlertingConfig
	if err := v.UnmarshalKey("alerting", &cfg); err != nil {
		return nil, err
	}
	if err := validateAlertingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AlertingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AlertingConfig
		if err := v.UnmarshalKey("alerting", &updated); err != nil {
			log.Printf("[alerting-config] reload failed: %v", err)
			return
		}
		if err := validateAlertingConfig(updated); err != nil {
			log.Printf("[alerting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[alerting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAlertingConfigHolder wraps a fixed config with no file watching,
// for embedded callers and tests.
func NewStaticAlertingConfigHolder(cfg AlertingConfig) (*AlertingConfigHolder, error) {
	if err := validateAlertingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &AlertingConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *AlertingConfigHolder) Get() AlertingConfig {
	return h.current.Load().(AlertingConfig)
}

func validateAlertingConfig(cfg AlertingConfig) error {
	if strings.TrimSpace(cfg.AuditTimeLayout) == "" {
		return errors.New("alerting.auditTimeLayout cannot be empty")
	}
	if strings.TrimSpace(cfg.AutoAckActor) == "" {
		return errors.New("alerting.autoAckActor cannot be empty")
	}
	return nil
}
