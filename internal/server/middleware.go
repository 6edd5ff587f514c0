package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/campstay/internal/booking/domain"
	obsmiddleware "github.com/smallbiznis/campstay/internal/observability/logger"
	"github.com/smallbiznis/campstay/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	headerIfMatch        = "If-Match"
	contextActorIDKey    = "actor_id"
	queryExpectedVersion = "expected_version"
)

// ActorRequired rejects edits without an X-Actor-ID set by the auth proxy.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(obsmiddleware.HeaderActorID))
		if actorID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextActorIDKey, actorID)
		c.Next()
	}
}

// EditRateLimit runs after ActorRequired. Redis failures let the edit through.
func (s *Server) EditRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.limiter.AllowActor(c.Request.Context(), c.GetString(contextActorIDKey))
		if err != nil {
			obsmiddleware.FromContext(c.Request.Context()).Warn("edit rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ratelimit.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// mutationMeta builds the common mutation header from path, actor and version.
func mutationMeta(c *gin.Context) (bookingdomain.MutationMeta, error) {
	bookingID, err := pathID(c, "id")
	if err != nil {
		return bookingdomain.MutationMeta{}, err
	}
	version, err := expectedVersion(c)
	if err != nil {
		return bookingdomain.MutationMeta{}, err
	}
	return bookingdomain.MutationMeta{
		BookingID:       bookingID,
		ActorID:         c.GetString(contextActorIDKey),
		ExpectedVersion: version,
	}, nil
}

func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := parseID(c.Param(name))
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return id, nil
}

// expectedVersion reads If-Match (quotes and W/ prefix allowed) or ?expected_version.
func expectedVersion(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.GetHeader(headerIfMatch))
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		raw = c.Query(queryExpectedVersion)
	}
	version, err := parseVersion(raw)
	if err != nil {
		return nil, newValidationError(queryExpectedVersion, "invalid_expected_version", "invalid expected version")
	}
	return version, nil
}

func setVersionHeader(c *gin.Context, version int64) {
	c.Header("ETag", `"`+strconv.FormatInt(version, 10)+`"`)
}
