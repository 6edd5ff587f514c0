package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/campstay/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/campstay/internal/booking/domain"
	"github.com/smallbiznis/campstay/internal/booking/recalc"
	"github.com/smallbiznis/campstay/internal/config"
	"github.com/smallbiznis/campstay/internal/observability"
	obsmiddleware "github.com/smallbiznis/campstay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/campstay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/campstay/internal/observability/tracing"
	"github.com/smallbiznis/campstay/internal/ratelimit"
	taxdomain "github.com/smallbiznis/campstay/internal/tax/domain"
	voucherdomain "github.com/smallbiznis/campstay/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(provideTotalsReader),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func provideTotalsReader(r *recalc.Reader) TotalsReader {
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// TotalsReader is the read side the totals endpoint needs.
type TotalsReader interface {
	Summary(ctx context.Context, bookingID snowflake.ID) (recalc.Summary, error)
}

type Server struct {
	engine     *gin.Engine
	bookingSvc bookingdomain.Service
	totals     TotalsReader
	auditSvc   auditdomain.Service
	voucherSvc voucherdomain.Service
	taxSvc     taxdomain.Service
	limiter    *ratelimit.EditLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	BookingSvc bookingdomain.Service
	Totals     TotalsReader
	AuditSvc   auditdomain.Service
	VoucherSvc voucherdomain.Service
	TaxSvc     taxdomain.Service
	Limiter    *ratelimit.EditLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		bookingSvc: p.BookingSvc,
		totals:     p.Totals,
		auditSvc:   p.AuditSvc,
		voucherSvc: p.VoucherSvc,
		taxSvc:     p.TaxSvc,
		limiter:    p.Limiter,
	}

	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// -------- Booking totals --------
	bookings := admin.Group("/bookings/:id")
	bookings.GET("/totals", s.GetBookingTotals)
	bookings.GET("/edit-logs", s.ListEditLogs)

	edits := bookings.Group("", s.ActorRequired(), s.EditRateLimit())

	// -------- Tents --------
	edits.POST("/tents", s.AddTent)
	edits.PATCH("/tents/:tentId", s.UpdateTent)
	edits.DELETE("/tents/:tentId", s.DeleteTent)

	// -------- Add-ons --------
	edits.POST("/addons", s.AddAddon)
	edits.PATCH("/addons/:itemId", s.UpdateAddon)
	edits.DELETE("/addons/:itemId", s.DeleteAddon)

	// -------- Menu products --------
	edits.POST("/menu-products", s.AddMenuProduct)
	edits.PATCH("/menu-products/:productId", s.UpdateMenuProduct)
	edits.DELETE("/menu-products/:productId", s.DeleteMenuProduct)

	// -------- Vouchers --------
	admin.POST("/vouchers/validate", s.ValidateVoucher)

	// -------- Zone tax --------
	admin.PUT("/zones/:zoneId/tax-rate", s.ActorRequired(), s.PutZoneTaxRate)
}
