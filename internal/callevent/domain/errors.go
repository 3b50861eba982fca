package domain

import "errors"

var (
	ErrMissingStartTime    = errors.New("missing_start_time")
	ErrMissingDialedDigits = errors.New("missing_dialed_digits")
	ErrNoRoutingIdentity   = errors.New("no_routing_identity")
)
