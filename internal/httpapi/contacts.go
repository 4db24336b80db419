package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"phonebook/internal/apperr"
	"phonebook/internal/contacts"
	"phonebook/internal/respond"
	"phonebook/internal/routing"
)

type contactAddBody struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Name        string `json:"name"`
	Action      string `json:"action" binding:"required"`
	Comments    string `json:"comments"`
}

type contactUpdateBody struct {
	Name     string `json:"name"`
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

// ListContacts serves one page of contacts.
// Query: search, after_key[phone_number], after_key[id], limit.
func (h Handlers) ListContacts(c *gin.Context) {
	limit, err := h.pageSize(c)
	if err != nil {
		fail(c, err)
		return
	}
	req := contacts.ListRequest{Search: c.Query("search"), Limit: limit}

	if after, ok := c.GetQueryMap("after_key"); ok {
		id, err := strconv.ParseInt(after["id"], 10, 64)
		if err != nil {
			fail(c, apperr.Invalid("Invalid integer: %s", after["id"]))
			return
		}
		req.AfterKey = &contacts.Key{PhoneNumber: after["phone_number"], ID: id}
	}

	page, err := h.Contacts.List(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, page)
}

func (h Handlers) GetContact(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	d, err := h.Contacts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, d)
}

func (h Handlers) AddContact(c *gin.Context) {
	var body contactAddBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, err)
		return
	}
	phone, err := routing.ValidatePhoneNumber(body.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	action, err := routing.ValidateAction(body.Action)
	if err != nil {
		fail(c, err)
		return
	}

	created, err := h.Contacts.Add(c.Request.Context(), contacts.AddRequest{
		PhoneNumber: phone,
		Name:        routing.OptionalName(body.Name),
		Action:      action,
		Comments:    routing.ValidateComments(body.Comments),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusCreated, created)
}

func (h Handlers) UpdateContact(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	var body contactUpdateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, err)
		return
	}
	action, err := routing.ValidateAction(body.Action)
	if err != nil {
		fail(c, err)
		return
	}

	updated, err := h.Contacts.Update(c.Request.Context(), contacts.UpdateRequest{
		ID:       id,
		Name:     routing.OptionalName(body.Name),
		Action:   action,
		Comments: routing.ValidateComments(body.Comments),
	})
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, updated)
}

// DeleteContact refuses contacts that still have calls.
func (h Handlers) DeleteContact(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	deleted, err := h.Contacts.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond.OK(c, http.StatusOK, deleted)
}
