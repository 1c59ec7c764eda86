package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated user id
const ContextUserID = "user_id"

// ReportTrigger enqueues statement generation
type ReportTrigger interface {
	TriggerReport(ctx context.Context, userID int64) error
}

// ReportCatalog lists and locates published statements
type ReportCatalog interface {
	List(userID int64) []string
	Resolve(userID int64, name string) (string, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Reports      ReportTrigger
	Catalog      ReportCatalog
	HealthChecks map[string]HealthCheck
	ServiceName  string
}

// userID returns the id stored by the user middleware
func userID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
