package runs

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/reconciler"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// Router exposes reconciliation runs over HTTP
type Router struct {
	service *reconciler.Service
	logger  ectologger.Logger
}

// NewRouter creates a new runs router
func NewRouter(service *reconciler.Service, logger ectologger.Logger) *Router {
	return &Router{
		service: service,
		logger:  logger,
	}
}

// Register registers run routes
func (r *Router) Register(g *echo.Group) {
	g.POST("", r.Trigger)
	g.GET("/last", r.Last)
}

// TriggerRequest is the body of a run request
type TriggerRequest struct {
	DryRun bool `json:"dry_run"`
}

// Trigger starts a reconciliation run and returns its report. Runs are
// synchronous; the response carries the full report of the finished run.
func (r *Router) Trigger(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "runs_handler.Trigger")
	defer span.End()

	var req TriggerRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %s", err.Error())
	}

	report, err := r.service.Run(ctx, req.DryRun)
	if err != nil {
		if errors.Is(err, reconciler.ErrRunInProgress) {
			return httperror.NewHTTPError(http.StatusConflict, err.Error())
		}
		r.logger.WithContext(ctx).WithError(err).Error("reconciliation run failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "reconciliation run failed")
	}

	return c.JSON(http.StatusOK, report)
}

// Last returns the report of the most recent run.
func (r *Router) Last(c echo.Context) error {
	ctx := c.Request().Context()
	_, span := tracing.StartSpan(ctx, "runs_handler.Last")
	defer span.End()

	report := r.service.LastReport()
	if report == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no run has completed yet")
	}

	return c.JSON(http.StatusOK, report)
}
