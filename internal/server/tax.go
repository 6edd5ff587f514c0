package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type zoneTaxRateRequest struct {
	Rate    *float64 `json:"rate"`
	Enabled *bool    `json:"enabled"`
}

// PutZoneTaxRate sets the zone's tax override. Stored booking totals are
// not recalculated here; the next edit or a totals read picks the rate up.
func (s *Server) PutZoneTaxRate(c *gin.Context) {
	zoneID, err := pathID(c, "zoneId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req zoneTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Rate == nil {
		AbortWithError(c, newValidationError("rate", "invalid_tax_rate", "rate is required"))
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	setting, err := s.taxSvc.UpsertZoneRate(c.Request.Context(), zoneID, *req.Rate, enabled)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": setting})
}
