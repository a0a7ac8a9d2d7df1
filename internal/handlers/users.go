package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// UserService is the participant API. *schedule.UserService implements it.
type UserService interface {
	CreateUser(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// RegisterUserRoutes registers POST /users/create and GET /users/get.
func RegisterUserRoutes(r gin.IRoutes, svc UserService, log *zap.Logger) {
	r.POST("/users/create", func(c *gin.Context) {
		var req models.CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid JSON payload", err.Error())
			return
		}

		u, err := svc.CreateUser(c.Request.Context(), req.Username)
		if err != nil {
			failErr(c, log, err)
			return
		}
		respond(c, http.StatusCreated, "User created successfully", u)
	})

	r.GET("/users/get", func(c *gin.Context) {
		users, err := svc.ListUsers(c.Request.Context())
		if err != nil {
			failErr(c, log, err)
			return
		}
		respond(c, http.StatusOK, "Users fetched successfully", users)
	})
}
