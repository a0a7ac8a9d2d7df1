package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/calendar"
	"github.com/PratikDhanave/event-scheduling-service/internal/models"
	"github.com/PratikDhanave/event-scheduling-service/internal/schedule"
)

// EventService is the event API consumed by the routes. *schedule.EventService implements it.
type EventService interface {
	Create(ctx context.Context, in schedule.CreateEventInput) (models.Event, bool, error)
	Update(ctx context.Context, id string, patch schedule.UpdateEventPatch) (schedule.UpdateResult, error)
	Get(ctx context.Context, id, displayLabel string) (models.PresentedEvent, error)
	ListForParticipant(ctx context.Context, participantID, displayLabel string) ([]models.PresentedEvent, error)
	ListEvents(ctx context.Context, participantID string) ([]models.Event, error)
	Present(ctx context.Context, events []models.Event, displayLabel string) ([]models.PresentedEvent, error)
}

// IdempotencyKeyHeader lets clients retry a create safely; it becomes the event id.
const IdempotencyKeyHeader = "Idempotency-Key"

// parseRFC3339 parses an RFC3339 timestamp and normalizes it to UTC.
// Empty input returns the zero time so the service reports the missing field.
func parseRFC3339(field, ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339", field)
	}
	return t.UTC(), nil
}

func parseOptionalRFC3339(field string, ts *string) (*time.Time, error) {
	if ts == nil {
		return nil, nil
	}
	if *ts == "" {
		return nil, fmt.Errorf("%s must be RFC3339", field)
	}
	t, err := parseRFC3339(field, *ts)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RegisterEventRoutes registers the event endpoints under r.
//
// POST /events/create             create (201, 200 on Idempotency-Key replay)
// GET  /events/get/:id            events of participant :id
// GET  /events/get/:id/calendar.ics
// GET  /events/event/:id          one event
// PUT  /events/update/:id         update with audit entry
func RegisterEventRoutes(r gin.IRoutes, svc EventService, log *zap.Logger) {
	r.POST("/events/create", func(c *gin.Context) {
		var req models.CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload", err.Error())
			return
		}

		start, err := parseRFC3339("startTime", req.StartTime)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		end, err := parseRFC3339("endTime", req.EndTime)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}

		ev, created, err := svc.Create(c.Request.Context(), schedule.CreateEventInput{
			ID:        c.GetHeader(IdempotencyKeyHeader),
			Profiles:  req.Profiles,
			TimeZone:  req.TimeZone,
			StartTime: start,
			EndTime:   end,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			failErr(c, log, err)
			return
		}

		if !created {
			respond(c, http.StatusOK, "Event already exists", ev)
			return
		}
		respond(c, http.StatusCreated, "Event created successfully", ev)
	})

	r.GET("/events/get/:id", func(c *gin.Context) {
		events, err := svc.ListForParticipant(c.Request.Context(), c.Param("id"), c.Query("timeZone"))
		if err != nil {
			failErr(c, log, err)
			return
		}
		respond(c, http.StatusOK, "Events fetched successfully", events)
	})

	r.GET("/events/get/:id/calendar.ics", func(c *gin.Context) {
		participantID := c.Param("id")
		ctx := c.Request.Context()

		events, err := svc.ListEvents(ctx, participantID)
		if err != nil {
			failErr(c, log, err)
			return
		}
		views, err := svc.Present(ctx, events, c.Query("timeZone"))
		if err != nil {
			failErr(c, log, err)
			return
		}

		items := make([]calendar.Item, len(events))
		for i := range events {
			items[i] = calendar.Item{Event: events[i], View: views[i]}
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, calendar.Filename(participantID)))
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.Render(participantID, items)))
	})

	r.GET("/events/event/:id", func(c *gin.Context) {
		ev, err := svc.Get(c.Request.Context(), c.Param("id"), c.Query("timeZone"))
		if err != nil {
			failErr(c, log, err)
			return
		}
		respond(c, http.StatusOK, "Event fetched successfully", ev)
	})

	r.PUT("/events/update/:id", func(c *gin.Context) {
		var req models.UpdateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload", err.Error())
			return
		}

		start, err := parseOptionalRFC3339("startTime", req.StartTime)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		end, err := parseOptionalRFC3339("endTime", req.EndTime)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}

		res, err := svc.Update(c.Request.Context(), c.Param("id"), schedule.UpdateEventPatch{
			Profiles:  req.Profiles,
			TimeZone:  req.TimeZone,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			failErr(c, log, err)
			return
		}

		message := "Event updated successfully"
		if !res.Updated {
			message = "No changes detected"
		}
		respond(c, http.StatusOK, message, models.UpdateEventResponse{Updated: res.Updated})
	})
}
