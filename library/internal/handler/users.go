package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/library/internal/model"
)

// ListUsers godoc
// @Summary list users
// @Tags users
// @Security Bearer
// @Produce json
// @Param skip query int false "offset"
// @Param limit query int false "page size"
// @Success 200 {object} model.ListUsers
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	users, err := h.userSvc.GetMulti(c.Request().Context(), skip, limit)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary create a user
// @Tags users
// @Security Bearer
// @Accept json
// @Produce json
// @Param input body model.UserCreate true "user"
// @Success 201 {object} model.User
// @Failure 400 {object} echo.HTTPError
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c echo.Context) error {
	var req model.UserCreate
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.Create(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

func (h *Handler) UpdateMe(c echo.Context) error {
	var req model.UserUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.Update(c.Request().Context(), currentUser(c).ID, req.SelfUpdate())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user, err := h.userSvc.Get(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUserByEmail(c echo.Context) error {
	user, err := h.userSvc.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.UserUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.userSvc.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary delete a user
// @Tags users
// @Security Bearer
// @Produce json
// @Param id path int true "user id"
// @Success 200 {object} model.User
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/v1/users/{id} [delete]
func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if id == currentUser(c).ID {
		return h.httpError(errs.ErrSelfDelete)
	}
	user, err := h.userSvc.Remove(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
