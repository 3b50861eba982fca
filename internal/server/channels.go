package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	dispatchdomain "github.com/stayware/callguard/internal/dispatch/domain"
)

func (s *Server) propertyIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func (s *Server) GetPropertyChannels(c *gin.Context) {
	propertyID, ok := s.propertyIDParam(c)
	if !ok {
		return
	}

	if _, err := s.propertySvc.Get(c.Request.Context(), propertyID); err != nil {
		AbortWithError(c, err)
		return
	}

	cfg, err := s.dispatchSvc.ChannelConfig(c.Request.Context(), propertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

func (s *Server) PutPropertyChannels(c *gin.Context) {
	propertyID, ok := s.propertyIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Defaults  dispatchdomain.ChannelPlan    `json:"defaults"`
		Overrides []dispatchdomain.OverrideSpec `json:"overrides"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if _, err := s.propertySvc.Get(c.Request.Context(), propertyID); err != nil {
		AbortWithError(c, err)
		return
	}

	cfg, err := s.dispatchSvc.SaveChannelConfig(c.Request.Context(), propertyID, req.Defaults, req.Overrides)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}
