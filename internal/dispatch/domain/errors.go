package domain

import "errors"

var (
	ErrMissingProperty  = errors.New("missing_property")
	ErrMissingLocalTime = errors.New("missing_local_time")
	ErrInvalidAlertType = errors.New("invalid_alert_type")
)
