package domain

import (
	"context"

	"github.com/stayware/callguard/pkg/db/pagination"
)

type ListAlertsRequest struct {
	pagination.Pagination
	PropertyID string `form:"property_id"`
	AckState   string `form:"ack_state"`
}

type ListAlertsResponse struct {
	pagination.PageInfo
	Alerts []AlertRecord `json:"alerts"`
}

type AcknowledgeRequest struct {
	AlertID string `json:"-"`
	Actor   string `json:"actor"`
}

// Service is the operator-facing surface over stored alerts: the alert list
// the front desk watches and the acknowledgment flow that clears rows from
// it. Acknowledging an already-acked alert is a no-op, not an error.
type Service interface {
	List(ctx context.Context, req ListAlertsRequest) (ListAlertsResponse, error)
	Get(ctx context.Context, id string) (*AlertRecord, error)
	Acknowledge(ctx context.Context, req AcknowledgeRequest) (*AlertRecord, error)
}
