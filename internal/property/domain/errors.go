package domain

import "errors"

var (
	// ErrPropertyNotFound means every resolution strategy passed on the
	// event without a claim.
	ErrPropertyNotFound = errors.New("property_not_found")

	// ErrPartnerPropertyNotFound means a partner-scoped scan ran and came
	// up empty. Partner traffic never falls through to the generic
	// strategies, so this is terminal.
	ErrPartnerPropertyNotFound = errors.New("partner_property_not_found")

	// ErrDirectoryUnavailable wraps transport failures against the external
	// partner directory.
	ErrDirectoryUnavailable = errors.New("partner_directory_unavailable")

	// ErrDirectoryNoMapping means the partner directory answered but does
	// not know the enterprise id.
	ErrDirectoryNoMapping = errors.New("partner_directory_no_mapping")

	ErrTimezoneNotConfigured = errors.New("timezone_not_configured")
)
