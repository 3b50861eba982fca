package service

import (
	"fmt"
	"strings"

	"github.com/stayware/callguard/internal/dispatch/domain"
	enrichmentdomain "github.com/stayware/callguard/internal/enrichment/domain"
)

// legacyDelimiter separates fields in the legacy-compatibility message the
// older consoles still parse.
const legacyDelimiter = "^"

func composeSubject(prefix, propertyName string) string {
	prefix = strings.TrimSpace(prefix)
	propertyName = strings.TrimSpace(propertyName)
	if prefix == "" {
		return propertyName
	}
	if propertyName == "" {
		return prefix
	}
	return prefix + ": " + propertyName
}

func composeBody(req domain.Request, localTime string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Emergency call at %s\n", req.Property.Name)
	fmt.Fprintf(&b, "Extension: %s\n", valueOr(req.Context.Extension, "unknown"))
	fmt.Fprintf(&b, "Location: %s\n", displayLocation(req.Context))
	fmt.Fprintf(&b, "Guest: %s\n", displayGuest(req.Context, req.Event.CallerName))
	fmt.Fprintf(&b, "Call time: %s\n", localTime)
	fmt.Fprintf(&b, "Dialed: %s\n", req.Event.DialedDigits)
	if req.Event.SequenceRef != "" {
		fmt.Fprintf(&b, "Reference: %s\n", req.Event.SequenceRef)
	}
	return b.String()
}

func composeLegacy(alertID string, req domain.Request, localTime string) string {
	fields := []string{
		alertID,
		req.Property.Name,
		req.Context.Extension,
		req.Context.RoomNumber,
		displayGuest(req.Context, req.Event.CallerName),
		localTime,
		req.Event.DialedDigits,
		req.Event.SequenceRef,
	}
	for i, field := range fields {
		fields[i] = strings.ReplaceAll(strings.TrimSpace(field), legacyDelimiter, " ")
	}
	return strings.Join(fields, legacyDelimiter)
}

func displayLocation(ctx enrichmentdomain.CallContext) string {
	switch {
	case ctx.RoomNumber != "":
		return "Room " + ctx.RoomNumber
	case ctx.LocationName != "":
		return ctx.LocationName
	default:
		return "No location on file"
	}
}

func displayGuest(ctx enrichmentdomain.CallContext, callerName string) string {
	if ctx.GuestName != "" {
		return ctx.GuestName
	}
	if name := strings.TrimSpace(callerName); name != "" {
		return name
	}
	return "Unknown"
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
