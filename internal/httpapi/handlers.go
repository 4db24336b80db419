package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"phonebook/internal/apperr"
	"phonebook/internal/audit"
	"phonebook/internal/broadcast"
	"phonebook/internal/calls"
	"phonebook/internal/contacts"
	"phonebook/internal/directory"
	"phonebook/internal/incoming"
	"phonebook/internal/query"
	"phonebook/internal/respond"
	"phonebook/internal/routing"
	"phonebook/pkg/utils"
)

// RuleStore is the persistence contract for default rules.
type RuleStore interface {
	List(ctx context.Context) (routing.Rules, error)
	Get(ctx context.Context, id int64) (routing.DefaultRule, error)
	Add(ctx context.Context, f routing.RuleFields) (routing.DefaultRule, error)
	Update(ctx context.Context, id int64, f routing.RuleFields) (routing.DefaultRule, error)
	Delete(ctx context.Context, id int64) error
}

// CallLister lists recorded calls.
type CallLister interface {
	List(ctx context.Context, req calls.ListRequest) (query.Page[calls.Details, calls.Key], error)
}

// Resyncer queues a directory reconciliation for every contact.
type Resyncer interface {
	ResyncAll(ctx context.Context, src directory.ContactLister) (int, error)
}

// HealthChecker probes an optional dependency.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	DB        *sql.DB
	Contacts  *contacts.Service
	Rules     RuleStore
	Calls     CallLister
	Incoming  *incoming.Service
	Live      *broadcast.Hub[calls.Details]
	Directory Resyncer
	Audit     *audit.Service

	// DirectoryHealth is nil when LDAP is not configured.
	DirectoryHealth HealthChecker

	PageSize   int
	LiveBuffer int

	// Heartbeat is the idle interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

// HealthCheck reports whether the database and, when configured, the
// directory answer.
func (h Handlers) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	if h.DB != nil {
		if err := utils.HealthCheck(ctx, h.DB, 2*time.Second); err != nil {
			fail(c, err)
			return
		}
	}
	if h.DirectoryHealth != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.DirectoryHealth.Check(checkCtx); err != nil {
			fail(c, fmt.Errorf("directory health: %w", err))
			return
		}
	}
	respond.OK(c, http.StatusOK, nil)
}

// IncomingCall records a call posted by the PBX.
func (h Handlers) IncomingCall(c *gin.Context) {
	var req incoming.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	d, err := h.Incoming.Handle(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, d)
}

// DirectoryResync queues every contact for reconciliation.
func (h Handlers) DirectoryResync(c *gin.Context) {
	if h.Directory == nil {
		fail(c, directory.ErrDisabled)
		return
	}
	n, err := h.Directory.ResyncAll(c.Request.Context(), h.Contacts)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventDirectoryResync, "directory", 0, strconv.Itoa(n)+" contacts queued")
	respond.OK(c, http.StatusAccepted, gin.H{"queued": n})
}

func (h Handlers) pageSize(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return query.ClampLimit(h.PageSize, query.DefaultLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperr.Invalid("Invalid integer: %s", raw)
	}
	return query.ClampLimit(n, h.PageSize), nil
}

func pathID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Invalid("Invalid integer: %s", raw)
	}
	return id, nil
}
