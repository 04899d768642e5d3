package app

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/animes/internal/sec"
	"github.com/stolasapp/animes/internal/storage"
)

const userNotFound = "User not found"

type userResponse struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Username string     `json:"username"`
	Roles    []sec.Role `json:"roles"`
}

type userHandler struct {
	store  storage.Users
	logger *slog.Logger
}

func (h userHandler) register(e *echo.Echo) {
	e.GET("/users/admin/:id", h.get)
}

// get godoc
// @Summary Get a user by id
// @Description ADMIN role required. The password hash is never returned.
// @Tags user
// @Produce json
// @Security BasicAuth
// @Param id path int true "User id"
// @Success 200 {object} userResponse
// @Failure 400 {object} echo.HTTPError "When the user does not exist"
// @Failure 401 {object} echo.HTTPError
// @Failure 403 {object} echo.HTTPError "When the caller is not an ADMIN"
// @Router /users/admin/{id} [get]
func (h userHandler) get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if caller, ok := sec.GetPrincipal(ctx); ok {
		h.logger.InfoContext(ctx, "user lookup",
			slog.String("caller", caller.Username),
			slog.Uint64("user_id", id),
		)
	}
	user, err := h.store.GetUser(ctx, id)
	if err != nil {
		return notFoundAs(err, userNotFound)
	}
	principal := sec.NewPrincipal(user)
	return c.JSON(http.StatusOK, userResponse{
		ID:       principal.ID,
		Name:     principal.Name,
		Username: principal.Username,
		Roles:    principal.Roles,
	})
}
