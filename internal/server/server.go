// Package server exposes the entry form and the overtime report over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	echo       *echo.Echo
	store      entry.Store
	agents     []string
	periods    []report.Period
	aggregator *report.Aggregator
	logger     *slog.Logger
	now        func() time.Time

	// OnEntry runs after an entry has been stored.
	OnEntry func(entry.Entry)
}

func New(store entry.Store, agents []string, periods []report.Period, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		echo:       echo.New(),
		store:      store,
		agents:     agents,
		periods:    periods,
		aggregator: report.NewAggregator(logger),
		logger:     logger,
		now:        time.Now,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			logger.Debug("request", attrs...)
			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/preview", s.handlePreview)
	api.POST("/entries", s.handleCreateEntry)
	api.GET("/report", s.handleReport)
	api.GET("/agents", s.handleAgents)
	api.GET("/periods", s.handlePeriods)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

type previewResponse struct {
	Complete bool   `json:"complete"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Minutes  int    `json:"minutes"`
	Label    string `json:"label,omitempty"`
}

// GET /api/preview?from=HH:MM&to=HH:MM&overnight=true
func (s *Server) handlePreview(c echo.Context) error {
	from, fromOK, err := duration.ParseTimeOfDay(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, err)
	}
	to, toOK, err := duration.ParseTimeOfDay(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, err)
	}
	if !fromOK || !toOK {
		return c.JSON(http.StatusOK, previewResponse{})
	}

	overnight, _ := strconv.ParseBool(c.QueryParam("overnight"))
	minutes := duration.Preview(from, to, overnight)
	return c.JSON(http.StatusOK, previewResponse{
		Complete: true,
		From:     from.String(),
		To:       to.String(),
		Minutes:  minutes,
		Label:    duration.FormatLabel(minutes),
	})
}

// POST /api/entries
func (s *Server) handleCreateEntry(c echo.Context) error {
	var form entry.Form
	if err := c.Bind(&form); err != nil {
		return badRequest(c, err)
	}

	e, err := entry.New(form, s.now())
	if err != nil {
		return badRequest(c, err)
	}

	if err := s.store.Append(c.Request().Context(), e); err != nil {
		s.logger.Error("storing entry failed", "agent", e.Agent, "error", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "storing entry failed"})
	}

	s.logger.Info("entry stored", "id", e.ID, "agent", e.Agent, "date", e.Date, "total", e.TotalTime)
	if s.OnEntry != nil {
		s.OnEntry(e)
	}
	return c.JSON(http.StatusCreated, e)
}

// GET /api/report?agent=NAME&period=NAME or &start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Server) handleReport(c echo.Context) error {
	agent := c.QueryParam("agent")
	if agent == "" {
		return badRequest(c, errors.New("agent is required"))
	}

	var (
		q          report.Query
		periodName string
	)
	if name := c.QueryParam("period"); name != "" {
		p, ok := report.FindPeriod(s.periods, name)
		if !ok {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown period " + strconv.Quote(name)})
		}
		q, periodName = p.For(agent), p.Name
	} else {
		start, err := report.ParseDate(c.QueryParam("start"))
		if err != nil {
			return badRequest(c, err)
		}
		end, err := report.ParseDate(c.QueryParam("end"))
		if err != nil {
			return badRequest(c, err)
		}
		q = report.Query{Agent: agent, Start: start, End: end}
	}

	rows, err := s.store.Rows(c.Request().Context())
	if err != nil {
		s.logger.Error("reading rows failed", "error", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "reading records failed"})
	}

	res, err := s.aggregator.Aggregate(rows, q)
	if errors.Is(err, report.ErrInvalidQuery) {
		return badRequest(c, err)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report.Summarize(q, periodName, res))
}

type agentsResponse struct {
	Agents   []string `json:"agents"`
	Recorded []string `json:"recorded"`
}

// GET /api/agents
func (s *Server) handleAgents(c echo.Context) error {
	rows, err := s.store.Rows(c.Request().Context())
	if err != nil {
		s.logger.Error("reading rows failed", "error", err)
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "reading records failed"})
	}
	agents := s.agents
	if agents == nil {
		agents = []string{}
	}
	recorded := report.Agents(rows)
	if recorded == nil {
		recorded = []string{}
	}
	return c.JSON(http.StatusOK, agentsResponse{Agents: agents, Recorded: recorded})
}

type periodResponse struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// GET /api/periods
func (s *Server) handlePeriods(c echo.Context) error {
	out := make([]periodResponse, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, periodResponse{
			Name:  p.Name,
			Start: p.Query.Start.Format("2006-01-02"),
			End:   p.Query.End.Format("2006-01-02"),
		})
	}
	return c.JSON(http.StatusOK, out)
}
