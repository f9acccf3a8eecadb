// Package control exposes the running poller on a local HTTP endpoint so
// the viewer can request a fetch and read the poller's status from
// another process.
package control

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nhle/humhub-notify/internal/model"
	"github.com/nhle/humhub-notify/internal/store"
	"github.com/nhle/humhub-notify/internal/sync"
	"github.com/nhle/humhub-notify/internal/viewer"
)

// Poller is what the control endpoint drives.
type Poller interface {
	Trigger() bool
	Status() sync.Status
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State       string      `json:"state"`
	LastRun     *time.Time  `json:"last_run,omitempty"`
	Error       string      `json:"error,omitempty"`
	Interval    string      `json:"interval"`
	Unread      int         `json:"unread"`
	Badge       model.Badge `json:"badge"`
	LastFetched *time.Time  `json:"last_fetched,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
	Version     int64       `json:"version"`
}

// Server serves the control endpoint.
type Server struct {
	echo   *echo.Echo
	poller Poller
	store  store.Store
}

// NewServer creates a Server with its routes registered.
func NewServer(p Poller, st store.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, poller: p, store: st}
	e.Use(s.loggingMiddleware())

	e.POST("/fetch", s.handleFetch)
	e.GET("/status", s.handleStatus)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// loggingMiddleware returns Echo middleware for request logging
func (s *Server) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			log.Printf("control: %s %s from %s", req.Method, req.URL.Path, req.RemoteAddr)
			return next(c)
		}
	}
}

func (s *Server) handleFetch(c echo.Context) error {
	ack := viewer.NewFetchAck(s.poller.Trigger())
	return c.JSON(http.StatusAccepted, ack)
}

func (s *Server) handleStatus(c echo.Context) error {
	st := s.poller.Status()
	resp := StatusResponse{
		State:    st.State.String(),
		Interval: st.Interval.String(),
		Unread:   st.Unread,
	}
	if !st.LastRun.IsZero() {
		t := st.LastRun
		resp.LastRun = &t
	}
	if st.Error != nil {
		resp.Error = st.Error.Error()
	}

	state, err := s.store.GetFetchState(c.Request().Context())
	if err != nil {
		log.Printf("control: reading fetch state: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "reading fetch state")
	}
	resp.Badge = state.Badge
	resp.LastFetched = state.LastFetched
	resp.LastError = state.LastError
	resp.Version = state.Version

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
