package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	calleventdomain "github.com/stayware/callguard/internal/callevent/domain"
	pipelinedomain "github.com/stayware/callguard/internal/pipeline/domain"
)

// callEventDisposition is the ingest response body. IDs are zero (and
// omitted) when the pipeline never reached the corresponding stage.
type callEventDisposition struct {
	Status     string       `json:"status"`
	Reason     string       `json:"reason"`
	AlertID    snowflake.ID `json:"alert_id,omitempty"`
	PropertyID snowflake.ID `json:"property_id,omitempty"`
}

func disposition(outcome pipelinedomain.Outcome) callEventDisposition {
	return callEventDisposition{
		Status:     outcome.Status,
		Reason:     outcome.Reason,
		AlertID:    outcome.AlertID,
		PropertyID: outcome.PropertyID,
	}
}

// ProcessCallEvent runs one PBX call event through the pipeline. Every
// processed event answers with a disposition; a failed outcome answers 422
// so the integration retries, anything else 200 so it does not.
//
// Failed outcomes do not go through the error middleware on purpose: the
// integration reads the disposition reason (property_not_found vs
// partner_lookup_failed) to decide whether redelivery can help, and the
// generic error envelope drops those fields. The middleware envelope is
// reserved for requests the pipeline never saw (malformed JSON, bad params).
func (s *Server) ProcessCallEvent(c *gin.Context) {
	var event calleventdomain.CallEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	outcome, err := s.pipelineSvc.Process(c.Request.Context(), event)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"data": disposition(outcome)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": disposition(outcome)})
}
