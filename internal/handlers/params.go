package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultPageLimit = 50

// parseLimit reads the "limit" query parameter, falling back to the default
// page size and clamping non-positive values.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit <= 0 {
		return defaultPageLimit
	}
	return limit
}

// optionalQuery returns a pointer to the query parameter value, or nil when absent.
func optionalQuery(c *gin.Context, name string) *string {
	if v, ok := c.GetQuery(name); ok && v != "" {
		return &v
	}
	return nil
}

// optionalTimeQuery parses an RFC 3339 timestamp query parameter.
func optionalTimeQuery(c *gin.Context, name string) (*time.Time, error) {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("query parameter %q must be RFC 3339: %w", name, err)
	}
	return &t, nil
}
