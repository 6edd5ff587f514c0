package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
)

type validateVoucherRequest struct {
	Code            string       `json:"code"`
	ZoneID          snowflake.ID `json:"zone_id"`
	ItemID          snowflake.ID `json:"item_id"`
	CategoryID      snowflake.ID `json:"category_id"`
	CheckIn         string       `json:"check_in"`
	TotalAmount     int64        `json:"total_amount"`
	ApplicationType string       `json:"application_type"`
}

// ValidateVoucher previews a discount for the admin UI. Usage is not consumed.
func (s *Server) ValidateVoucher(c *gin.Context) {
	var req validateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.TotalAmount < 0 {
		AbortWithError(c, newValidationError("total_amount", "invalid_total_amount", "total_amount must not be negative"))
		return
	}

	checkIn, err := parseStayDate(req.CheckIn)
	if err != nil {
		AbortWithError(c, newValidationError("check_in", "invalid_check_in", "invalid check_in"))
		return
	}

	vctx := voucherdomain.ValidationContext{
		ZoneID:          req.ZoneID,
		ItemID:          req.ItemID,
		CategoryID:      req.CategoryID,
		TotalAmount:     req.TotalAmount,
		ApplicationType: voucherdomain.ApplicationType(strings.ToLower(strings.TrimSpace(req.ApplicationType))),
		CheckIn:         checkIn,
	}

	result, err := s.voucherSvc.Validate(c.Request.Context(), req.Code, vctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
