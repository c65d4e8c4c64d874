package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-management/library/internal/model"
)

// CreateLoan godoc
// @Summary borrow a book
// @Description admins may borrow on behalf of another user
// @Tags loans
// @Security Bearer
// @Accept json
// @Produce json
// @Param input body model.LoanCreateRequest true "loan"
// @Success 201 {object} model.Loan
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/v1/loans [post]
func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.LoanCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	me := currentUser(c)
	userID := me.ID
	if req.UserID != 0 && req.UserID != me.ID {
		if !me.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "not enough privileges")
		}
		userID = req.UserID
	}
	loan, err := h.loanSvc.CreateLoan(c.Request().Context(), userID, req.BookID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) MyLoans(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.ListByUser(c.Request().Context(), currentUser(c).ID, skip, limit)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loan, err := h.ownLoan(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

// ReturnLoan godoc
// @Summary return a borrowed book
// @Tags loans
// @Security Bearer
// @Produce json
// @Param id path int true "loan id"
// @Success 200 {object} model.Loan
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/v1/loans/{id}/return [post]
func (h *Handler) ReturnLoan(c echo.Context) error {
	loan, err := h.ownLoan(c)
	if err != nil {
		return err
	}
	loan, err = h.loanSvc.ReturnLoan(c.Request().Context(), loan.ID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// ExtendLoan godoc
// @Summary push the due date once
// @Tags loans
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "loan id"
// @Param input body model.LoanExtendRequest true "extension"
// @Success 200 {object} model.Loan
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/v1/loans/{id}/extend [post]
func (h *Handler) ExtendLoan(c echo.Context) error {
	loan, err := h.ownLoan(c)
	if err != nil {
		return err
	}
	var req model.LoanExtendRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	loan, err = h.loanSvc.ExtendLoan(c.Request().Context(), loan.ID, req.ExtensionDays)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ListLoans(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.GetMulti(c.Request().Context(), skip, limit)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) ListOverdue(c echo.Context) error {
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	loans, err := h.loanSvc.ListOverdue(c.Request().Context(), skip, limit)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) LoanEvents(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	events, err := h.loanSvc.Events(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, events)
}

// ownLoan loads the loan named in the path; only its borrower or an admin may see it.
func (h *Handler) ownLoan(c echo.Context) (model.Loan, error) {
	id, err := paramID(c)
	if err != nil {
		return model.Loan{}, err
	}
	loan, err := h.loanSvc.Get(c.Request().Context(), id)
	if err != nil {
		return model.Loan{}, h.httpError(err)
	}
	me := currentUser(c)
	if loan.UserID != me.ID && !me.IsAdmin {
		return model.Loan{}, echo.NewHTTPError(http.StatusForbidden, "not enough privileges")
	}
	return loan, nil
}
