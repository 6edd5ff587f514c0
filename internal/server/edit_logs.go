package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/pkg/db/pagination"
)

type listEditLogsQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	ActionKind string `form:"action_kind"`
}

func (s *Server) ListEditLogs(c *gin.Context) {
	bookingID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query listEditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListEditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		BookingID:  bookingID,
		ActionKind: strings.TrimSpace(query.ActionKind),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.EditLogs, "page_info": resp.PageInfo})
}
