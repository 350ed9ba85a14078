// Package web is the HTTP surface: the host automation platform pushes
// media-player state changes to the event webhook, and the rendered chart
// report is served back out.
package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mpetrov/music-tracker/internal/pipeline"
)

// Registry holds the latest known state per entity. The ingest pipeline
// re-reads it at confirmation time to verify a track is still playing.
type Registry struct {
	mu     sync.Mutex
	states map[string]pipeline.Event
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]pipeline.Event)}
}

func (r *Registry) Set(ev pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[ev.EntityID] = ev
}

func (r *Registry) Get(entityID string) (pipeline.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.states[entityID]
	return ev, ok
}

type Server struct {
	echo       *echo.Echo
	pipe       *pipeline.Pipeline
	registry   *Registry
	players    map[string]bool
	reportPath string
	log        *zap.Logger
}

func New(pipe *pipeline.Pipeline, registry *Registry, players []string, reportPath string, log *zap.Logger) *Server {
	s := &Server{
		echo:       echo.New(),
		pipe:       pipe,
		registry:   registry,
		players:    make(map[string]bool, len(players)),
		reportPath: reportPath,
		log:        log,
	}
	for _, p := range players {
		s.players[p] = true
	}

	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())

	s.echo.POST("/api/events", s.handleEvent)
	s.echo.GET("/report", s.handleReport)
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	return s
}

type stateChange struct {
	EntityID   string `json:"entity_id"`
	NewState   string `json:"new_state"`
	Attributes struct {
		MediaArtist    string `json:"media_artist"`
		MediaTitle     string `json:"media_title"`
		MediaAlbumName string `json:"media_album_name"`
		MediaChannel   string `json:"media_channel"`
		Source         string `json:"source"`
	} `json:"attributes"`
}

func (s *Server) handleEvent(c echo.Context) error {
	var sc stateChange
	if err := c.Bind(&sc); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	if sc.EntityID == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	if !s.players[sc.EntityID] {
		// Not a monitored player; acknowledged but ignored.
		return c.NoContent(http.StatusNoContent)
	}

	channel := sc.Attributes.MediaChannel
	if channel == "" {
		channel = sc.Attributes.Source
	}
	ev := pipeline.Event{
		EntityID: sc.EntityID,
		State:    sc.NewState,
		Artist:   sc.Attributes.MediaArtist,
		Title:    sc.Attributes.MediaTitle,
		Album:    sc.Attributes.MediaAlbumName,
		Channel:  channel,
	}

	s.registry.Set(ev)
	s.pipe.Handle(ev)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleReport(c echo.Context) error {
	return c.File(s.reportPath)
}

func (s *Server) Start(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
