package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-management/library/internal/model"
)

// ListBooks godoc
// @Summary list or search books
// @Tags books
// @Security Bearer
// @Produce json
// @Param skip query int false "offset"
// @Param limit query int false "page size"
// @Param title query string false "title substring"
// @Param author query string false "author substring"
// @Success 200 {object} model.ListBooks
// @Router /api/v1/books [get]
func (h *Handler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()
	skip, limit, err := paging(c)
	if err != nil {
		return err
	}
	var (
		title  = c.QueryParam("title")
		author = c.QueryParam("author")
		books  []model.Book
	)
	switch {
	case title != "" && author != "":
		return echo.NewHTTPError(http.StatusBadRequest, "filter by title or author, not both")
	case title != "":
		books, err = h.bookSvc.GetByTitle(ctx, title, skip, limit)
	case author != "":
		books, err = h.bookSvc.GetByAuthor(ctx, author, skip, limit)
	default:
		list, err := h.bookSvc.GetMulti(ctx, skip, limit)
		if err != nil {
			return h.httpError(err)
		}
		return c.JSON(http.StatusOK, list)
	}
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, model.ListBooks{
		Paging: model.Paging{Skip: skip, Limit: limit},
		Items:  books,
	})
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.bookSvc.Get(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) GetBookByISBN(c echo.Context) error {
	book, err := h.bookSvc.GetByISBN(c.Request().Context(), c.Param("isbn"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// CreateBook godoc
// @Summary add a book to the catalogue
// @Tags books
// @Security Bearer
// @Accept json
// @Produce json
// @Param input body model.BookCreate true "book"
// @Success 201 {object} model.Book
// @Failure 400 {object} echo.HTTPError
// @Router /api/v1/books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.BookCreate
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.bookSvc.Create(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.BookUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.bookSvc.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.bookSvc.Remove(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// UpdateQuantity godoc
// @Summary shift the stock of a book
// @Tags books
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path int true "book id"
// @Param input body model.QuantityChange true "delta"
// @Success 200 {object} model.Book
// @Failure 400 {object} echo.HTTPError
// @Failure 404 {object} echo.HTTPError
// @Router /api/v1/books/{id}/quantity [patch]
func (h *Handler) UpdateQuantity(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req model.QuantityChange
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.bookSvc.UpdateQuantity(c.Request().Context(), id, req.Delta)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}
