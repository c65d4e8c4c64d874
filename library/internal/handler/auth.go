package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-management/library/internal/model"
)

// Signup godoc
// @Summary register a reader account
// @Tags auth
// @Accept json
// @Produce json
// @Param input body model.Signup true "account"
// @Success 201 {object} model.User
// @Failure 400 {object} echo.HTTPError
// @Router /api/v1/auth/signup [post]
func (h *Handler) Signup(c echo.Context) error {
	var req model.Signup
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.Create(c.Request().Context(), req.UserCreate())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary issue an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param input body model.Credentials true "credentials"
// @Success 200 {object} auth.Token
// @Failure 401 {object} echo.HTTPError
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req model.Credentials
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.Authenticate(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	token, err := h.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, token)
}
