package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-management/library/internal/errs"
	"github.com/Astemirdum/library-management/pkg/auth"
	md "github.com/Astemirdum/library-management/pkg/middleware"
	"github.com/Astemirdum/library-management/pkg/serializer"
	"github.com/Astemirdum/library-management/pkg/validate"
	_ "github.com/Astemirdum/library-management/swagger"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type Handler struct {
	userSvc UserService
	bookSvc BookService
	loanSvc LoanService
	tokens  *auth.Manager
	log     *zap.Logger
}

func New(users UserService, books BookService, loans LoanService, tokens *auth.Manager, log *zap.Logger) *Handler {
	return &Handler{
		userSvc: users,
		bookSvc: books,
		loanSvc: loans,
		tokens:  tokens,
		log:     log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.JSONSerializer = serializer.JSONSerializer{}
	e.Validator = validate.NewCustomValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log.Named("echo"))),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)

	authed := api.Group("", h.authenticate)
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/me", h.UpdateMe)

	authed.GET("/books", h.ListBooks)
	authed.GET("/books/:id", h.GetBook)
	authed.GET("/books/isbn/:isbn", h.GetBookByISBN)

	authed.POST("/loans", h.CreateLoan)
	authed.GET("/loans/me", h.MyLoans)
	authed.GET("/loans/:id", h.GetLoan)
	authed.POST("/loans/:id/return", h.ReturnLoan)
	authed.POST("/loans/:id/extend", h.ExtendLoan)

	admin := authed.Group("", requireAdmin)
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.GET("/users/by-email/:email", h.GetUserByEmail)
	admin.GET("/users/:id", h.GetUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)

	admin.POST("/books", h.CreateBook)
	admin.PUT("/books/:id", h.UpdateBook)
	admin.DELETE("/books/:id", h.DeleteBook)
	admin.PATCH("/books/:id/quantity", h.UpdateQuantity)

	admin.GET("/loans", h.ListLoans)
	admin.GET("/loans/overdue", h.ListOverdue)
	admin.GET("/loans/:id/events", h.LoanEvents)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps service errors onto status codes.
func (h *Handler) httpError(err error) error {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrDuplicateKey), errors.Is(err, errs.ErrInvalidState):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		h.log.Error("internal", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func paramID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

func paging(c echo.Context) (skip, limit int, err error) {
	limit = defaultLimit
	if skipParam := c.QueryParam("skip"); skipParam != "" {
		if skip, err = strconv.Atoi(skipParam); err != nil || skip < 0 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "skip is invalid")
		}
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if limit, err = strconv.Atoi(limitParam); err != nil || limit <= 0 || limit > maxLimit {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit is invalid")
		}
	}
	return skip, limit, nil
}
