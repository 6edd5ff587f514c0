package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	"github.com/smallbiznis/campstay/internal/clock"
	obscontext "github.com/smallbiznis/campstay/internal/observability/context"
	"github.com/smallbiznis/campstay/internal/observability/metrics"
	"github.com/smallbiznis/campstay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    auditdomain.Repository
	Clock   clock.Clock      `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    auditdomain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p Params) auditdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) Log(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, actorID string, kind auditdomain.ActionKind, description string) error {
	if bookingID == 0 {
		return auditdomain.ErrInvalidBooking
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return auditdomain.ErrInvalidActor
	}
	if !kind.Valid() {
		return auditdomain.ErrInvalidActionKind
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return auditdomain.ErrInvalidDescription
	}
	if tx == nil {
		tx = s.db
	}

	payload := map[string]any{}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.EditLog{
		ID:          s.genID.Generate(),
		BookingID:   bookingID,
		ActorID:     actorID,
		ActionKind:  kind,
		Description: description,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if len(payload) > 0 {
		entry.Metadata = datatypes.JSONMap(payload)
	}

	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		s.log.Warn("failed to write booking edit log",
			zap.String("booking_id", bookingID.String()),
			zap.String("action_kind", string(kind)),
			zap.Error(err),
		)
		return err
	}
	s.metrics.RecordAuditEntry(ctx, string(kind))
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListEditLogRequest) (auditdomain.ListEditLogResponse, error) {
	if req.BookingID == 0 {
		return auditdomain.ListEditLogResponse{}, auditdomain.ErrInvalidBooking
	}
	if kind := strings.TrimSpace(req.ActionKind); kind != "" && !auditdomain.ActionKind(kind).Valid() {
		return auditdomain.ListEditLogResponse{}, auditdomain.ErrInvalidActionKind
	}

	var cursor *auditdomain.EditLogCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListEditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListEditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListEditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.EditLogCursor{ID: id, CreatedAt: createdAt}
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		BookingID:  req.BookingID,
		ActionKind: req.ActionKind,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListEditLogResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(item *auditdomain.EditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]auditdomain.EditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListEditLogResponse{PageInfo: pageInfo, EditLogs: logs}, nil
}
