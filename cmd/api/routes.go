package main

import (
	"phonebook/internal/httpapi"
	"phonebook/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, staffMW, pbxMW gin.HandlerFunc) {
	// public
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/healthcheck", h.HealthCheck)

	// PBX webhook, static Basic credentials.
	api.POST("/incoming_call/", pbxMW, h.IncomingCall)

	// staff API
	staff := api.Group("")
	staff.Use(staffMW, rbac.RequireAnyRole(rbac.RoleStaff))
	{
		staff.GET("/contacts", h.ListContacts)
		staff.POST("/contacts", h.AddContact)
		staff.GET("/contacts/:id", h.GetContact)
		staff.PUT("/contacts/:id", h.UpdateContact)
		staff.DELETE("/contacts/:id", h.DeleteContact)

		staff.GET("/phone_calls", h.ListPhoneCalls)
		staff.GET("/phone_calls/live", h.LivePhoneCalls)

		staff.GET("/defaults", h.ListDefaults)
		staff.GET("/defaults/:id", h.GetDefault)
	}

	// admin only
	admin := api.Group("")
	admin.Use(staffMW, rbac.RequireAdmin())
	{
		admin.POST("/defaults", h.AddDefault)
		admin.PUT("/defaults/:id", h.UpdateDefault)
		admin.DELETE("/defaults/:id", h.DeleteDefault)

		admin.POST("/directory/resync", h.DirectoryResync)
	}
}
