package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"phonebook/internal/apperr"
	"phonebook/internal/calls"
	"phonebook/internal/respond"
	"phonebook/pkg/logger"
)

// ListPhoneCalls serves one page of calls, newest first.
// Query: search, contact_id, after_key[inserted_at], after_key[id], limit.
func (h Handlers) ListPhoneCalls(c *gin.Context) {
	limit, err := h.pageSize(c)
	if err != nil {
		fail(c, err)
		return
	}
	req := calls.ListRequest{Search: c.Query("search"), Limit: limit}

	if raw := c.Query("contact_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, apperr.Invalid("Invalid integer: %s", raw))
			return
		}
		req.ContactID = &id
	}

	if after, ok := c.GetQueryMap("after_key"); ok {
		at, err := time.Parse(time.RFC3339Nano, after["inserted_at"])
		if err != nil {
			fail(c, apperr.Invalid("Invalid timestamp: %s", after["inserted_at"]))
			return
		}
		id, err := strconv.ParseInt(after["id"], 10, 64)
		if err != nil {
			fail(c, apperr.Invalid("Invalid integer: %s", after["id"]))
			return
		}
		req.AfterKey = &calls.Key{InsertedAt: at, ID: id}
	}

	page, err := h.Calls.List(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, page)
}

// LivePhoneCalls streams newly recorded calls as server-sent "phone_call"
// events until the client disconnects.
func (h Handlers) LivePhoneCalls(c *gin.Context) {
	sub := h.Live.Subscribe(h.LiveBuffer)
	defer sub.Close()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	log := logger.FromGin(c)
	log.Debug("live subscriber connected", "subscribers", h.Live.Subscribers())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case d, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent("phone_call", d)
			return true
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		}
	})
	log.Debug("live subscriber disconnected")
}
