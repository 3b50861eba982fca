package cache

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

const (
	defaultPropertyTTL = 10 * time.Minute
	defaultGatewayTTL  = 10 * time.Minute
	defaultTimezoneTTL = 10 * time.Minute
	defaultParamTTL    = 45 * time.Second
)

// PropertyResolverCache stores hot-path directory lookups for call
// processing. Params get a short TTL so exemption-list edits take effect
// without a restart.
type PropertyResolverCache interface {
	GetProperty(id snowflake.ID) (*propertydomain.Property, bool)
	SetProperty(property *propertydomain.Property)
	GetPartnerGateway(groupID string) (*propertydomain.PartnerGateway, bool)
	SetPartnerGateway(groupID string, gateway *propertydomain.PartnerGateway)
	GetTimezone(propertyID snowflake.ID) (*propertydomain.PropertyTimezone, bool)
	SetTimezone(propertyID snowflake.ID, tz *propertydomain.PropertyTimezone)
	GetParam(propertyID snowflake.ID, name string) (string, bool)
	SetParam(propertyID snowflake.ID, name, value string)
}

type propertyResolverCache struct {
	properties Cache[string, *propertydomain.Property]
	gateways   Cache[string, *propertydomain.PartnerGateway]
	timezones  Cache[string, *propertydomain.PropertyTimezone]
	params     Cache[string, string]

	propertyTTL time.Duration
	gatewayTTL  time.Duration
	timezoneTTL time.Duration
	paramTTL    time.Duration
}

// NewPropertyResolverCache returns an in-memory cache tuned for call ingest.
func NewPropertyResolverCache() PropertyResolverCache {
	return &propertyResolverCache{
		properties:  NewTTLCache[string, *propertydomain.Property](),
		gateways:    NewTTLCache[string, *propertydomain.PartnerGateway](),
		timezones:   NewTTLCache[string, *propertydomain.PropertyTimezone](),
		params:      NewTTLCache[string, string](),
		propertyTTL: defaultPropertyTTL,
		gatewayTTL:  defaultGatewayTTL,
		timezoneTTL: defaultTimezoneTTL,
		paramTTL:    defaultParamTTL,
	}
}

func (c *propertyResolverCache) GetProperty(id snowflake.ID) (*propertydomain.Property, bool) {
	return c.properties.Get(id.String())
}

func (c *propertyResolverCache) SetProperty(property *propertydomain.Property) {
	if property == nil || property.ID == 0 {
		return
	}
	c.properties.Set(property.ID.String(), property, c.propertyTTL)
}

func (c *propertyResolverCache) GetPartnerGateway(groupID string) (*propertydomain.PartnerGateway, bool) {
	return c.gateways.Get(cacheKey(groupID))
}

func (c *propertyResolverCache) SetPartnerGateway(groupID string, gateway *propertydomain.PartnerGateway) {
	if gateway == nil {
		return
	}
	c.gateways.Set(cacheKey(groupID), gateway, c.gatewayTTL)
}

func (c *propertyResolverCache) GetTimezone(propertyID snowflake.ID) (*propertydomain.PropertyTimezone, bool) {
	return c.timezones.Get(propertyID.String())
}

func (c *propertyResolverCache) SetTimezone(propertyID snowflake.ID, tz *propertydomain.PropertyTimezone) {
	if tz == nil {
		return
	}
	c.timezones.Set(propertyID.String(), tz, c.timezoneTTL)
}

func (c *propertyResolverCache) GetParam(propertyID snowflake.ID, name string) (string, bool) {
	return c.params.Get(cacheKey(propertyID.String(), name))
}

func (c *propertyResolverCache) SetParam(propertyID snowflake.ID, name, value string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	c.params.Set(cacheKey(propertyID.String(), name), value, c.paramTTL)
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
