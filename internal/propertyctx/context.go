package propertyctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// PropertyContextKey is the request context key for the resolved property ID.
type PropertyContextKey struct{}

// WithPropertyID stores the property ID in the context. The pipeline sets it
// right after resolution so downstream stages and log enrichment can read it.
func WithPropertyID(ctx context.Context, propertyID snowflake.ID) context.Context {
	return context.WithValue(ctx, PropertyContextKey{}, propertyID)
}

// PropertyIDFromContext returns the property ID from context, if set. Gin
// handlers stash it as a string, repositories as snowflake.ID; both forms
// are accepted.
func PropertyIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(PropertyContextKey{})
	if value == nil {
		return 0, false
	}

	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
