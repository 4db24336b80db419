package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"phonebook/internal/audit"
	"phonebook/internal/respond"
	"phonebook/internal/routing"
)

// ListDefaults returns every default rule in evaluation order. The table is
// small, so it is not paginated.
func (h Handlers) ListDefaults(c *gin.Context) {
	rules, err := h.Rules.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if rules == nil {
		rules = routing.Rules{}
	}
	respond.OK(c, http.StatusOK, rules)
}

func (h Handlers) GetDefault(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := h.Rules.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, r)
}

func (h Handlers) AddDefault(c *gin.Context) {
	fields, ok := bindRule(c)
	if !ok {
		return
	}
	r, err := h.Rules.Add(c.Request.Context(), fields)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventDefaultCreated, "default", r.ID, r.Regexp)
	respond.OK(c, http.StatusCreated, r)
}

func (h Handlers) UpdateDefault(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	fields, ok := bindRule(c)
	if !ok {
		return
	}
	r, err := h.Rules.Update(c.Request.Context(), id, fields)
	if err != nil {
		fail(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventDefaultUpdated, "default", r.ID, r.Regexp)
	respond.OK(c, http.StatusOK, r)
}

func (h Handlers) DeleteDefault(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Rules.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.Audit.Record(c.Request.Context(), audit.EventDefaultDeleted, "default", id, "")
	respond.OK(c, http.StatusOK, nil)
}

func bindRule(c *gin.Context) (routing.RuleFields, bool) {
	var in routing.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, err)
		return routing.RuleFields{}, false
	}
	fields, err := in.Validate()
	if err != nil {
		fail(c, err)
		return routing.RuleFields{}, false
	}
	return fields, true
}
