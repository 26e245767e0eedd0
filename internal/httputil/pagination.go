package httputil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Default and maximum page sizes for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ParseLimit parses the limit query parameter. It defaults to DefaultLimit
// and cannot exceed MaxLimit.
func ParseLimit(c *gin.Context) (int, error) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(DefaultLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", MaxLimit)
	}
	return limit, nil
}

// ParseTimeRange parses the optional RFC 3339 from and to query parameters.
func ParseTimeRange(c *gin.Context) (from, to *time.Time, err error) {
	if from, err = parseTimeQuery(c, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = parseTimeQuery(c, "to"); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("invalid time range: from must not be after to")
	}
	return from, to, nil
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s parameter: must be an RFC 3339 timestamp", name)
	}
	t = t.UTC()
	return &t, nil
}
