package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/event-scheduling-service/internal/timezone"
)

// TimezoneCatalog lists and resolves display labels. *timezone.Catalog implements it.
type TimezoneCatalog interface {
	Labels() []string
	Resolve(label string) (string, error)
}

// RegisterTimezoneRoutes registers GET /timeZones and GET /timeZones/:key.
func RegisterTimezoneRoutes(r gin.IRoutes, catalog TimezoneCatalog) {
	r.GET("/timeZones", func(c *gin.Context) {
		respond(c, http.StatusOK, "Time zones fetched successfully", catalog.Labels())
	})

	r.GET("/timeZones/:key", func(c *gin.Context) {
		label := c.Param("key")
		id, err := catalog.Resolve(label)
		if errors.Is(err, timezone.ErrNotFound) {
			fail(c, http.StatusNotFound, "time zone not found", label)
			return
		}
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		respond(c, http.StatusOK, "Time zone fetched successfully", gin.H{"label": label, "ianaId": id})
	})
}
