package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const stayDateLayout = "2006-01-02"

var (
	errInvalidID       = errors.New("invalid_id")
	errInvalidVersion  = errors.New("invalid_version")
	errInvalidStayDate = errors.New("invalid_stay_date")
)

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// parseVersion returns nil for an empty value. Versions start at 1.
func parseVersion(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	version, err := strconv.ParseInt(value, 10, 64)
	if err != nil || version <= 0 {
		return nil, errInvalidVersion
	}
	return &version, nil
}

// parseStayDate accepts RFC 3339 or a bare date, which is read as midnight UTC.
func parseStayDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.ParseInLocation(stayDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, errInvalidStayDate
	}
	return parsed, nil
}
