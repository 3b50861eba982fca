package domain

import "errors"

var (
	ErrAlertNotFound    = errors.New("alert_not_found")
	ErrInvalidAlertID   = errors.New("invalid_alert_id")
	ErrInvalidProperty  = errors.New("invalid_property")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAckState  = errors.New("invalid_ack_state")
	ErrInvalidActor     = errors.New("invalid_actor")
)
