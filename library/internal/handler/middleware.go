package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
	"github.com/Astemirdum/library-management/pkg/auth"
)

const currentUserKey = "currentUser"

// authenticate resolves the bearer token to an active user.
func (h *Handler) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(auth.AuthorizationHeader)
		if !strings.HasPrefix(header, auth.Bearer) {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		claims, err := h.tokens.Parse(strings.TrimPrefix(header, auth.Bearer))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}
		user, err := h.userSvc.Get(c.Request().Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "user not found")
			}
			return h.httpError(err)
		}
		if !user.IsActive {
			return echo.NewHTTPError(http.StatusBadRequest, "inactive user")
		}
		c.Set(currentUserKey, user)
		return next(c)
	}
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !currentUser(c).IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "not enough privileges")
		}
		return next(c)
	}
}

func currentUser(c echo.Context) model.User {
	u, _ := c.Get(currentUserKey).(model.User)
	return u
}
