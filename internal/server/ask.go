package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/aisearch/models"
	"go.uber.org/zap"
)

// Runner executes one question.
type Runner interface {
	Run(ctx context.Context, query string, lang models.Language) (*models.RunResult, error)
}

// RunnerFactory returns a fresh runner for every request.
type RunnerFactory func() (Runner, error)

type AskHandler struct {
	newRunner       RunnerFactory
	defaultLanguage string
	timeout         time.Duration
	log             *zap.Logger
}

type askRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

func (h *AskHandler) Register(g *echo.Group) {
	g.POST("/ask", h.ask)
}

// ask answers one question.
//
//	@Summary  Answer a question from live web sources
//	@Accept   json
//	@Produce  json
//	@Success  200 {object} models.RunResult
//	@Failure  404 {object} models.RunResult "no_results"
//	@Failure  422 {object} models.RunResult "inappropriate"
//	@Failure  502 {object} models.RunResult "upstream_failure"
//	@Router   /v1/ask [post]
func (h *AskHandler) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.Language == "" {
		req.Language = h.defaultLanguage
	}
	lang, err := models.ParseLanguage(req.Language)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.newRunner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pipeline not configured")
	}
	runner, err := h.newRunner()
	if err != nil {
		if errors.Is(err, models.ErrConfiguration) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	res, err := runner.Run(ctx, req.Query, lang)
	if res == nil {
		if err == nil {
			err = errors.New("pipeline returned no result")
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err != nil {
		h.log.Warn("run failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
	return c.JSON(StatusFor(res.Outcome), res)
}

// StatusFor maps a run outcome to its HTTP status.
func StatusFor(o models.Outcome) int {
	switch o {
	case models.OutcomeAnswered:
		return http.StatusOK
	case models.OutcomeInappropriate:
		return http.StatusUnprocessableEntity
	case models.OutcomeNoResults:
		return http.StatusNotFound
	case models.OutcomeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
