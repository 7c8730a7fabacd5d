// Package httpserver is the agent's control surface: health, worker gating,
// the Twilio voice webhook, live session introspection, metrics and the
// WebSocket call endpoint itself.
package httpserver

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go/twiml"

	"printer-voice-agent/internal/aifallback"
	"printer-voice-agent/internal/catalog"
	"printer-voice-agent/internal/config"
	"printer-voice-agent/internal/metrics"
	"printer-voice-agent/internal/session"
	"printer-voice-agent/internal/transport"
)

// Server bundles the router and the call dependencies.
type Server struct {
	cfg config.Config
	cat *catalog.Catalog
	ai  aifallback.Analyzer
	mgr *session.Manager
	met *metrics.Metrics
	log *logrus.Entry

	echo      *echo.Echo
	accepting atomic.Bool
}

// New constructs the server with all routes registered. The worker starts in
// the accepting state.
func New(cfg config.Config, cat *catalog.Catalog, ai aifallback.Analyzer, mgr *session.Manager, met *metrics.Metrics, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if met == nil {
		met = metrics.New()
	}
	s := &Server{cfg: cfg, cat: cat, ai: ai, mgr: mgr, met: met, log: log}
	s.accepting.Store(true)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(s.twilioAuthMiddleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.POST("/worker/start", s.handleWorkerStart)
	e.POST("/worker/stop", s.handleWorkerStop)
	e.GET("/sessions", s.handleSessions)
	e.GET("/metrics", echo.WrapHandler(met.Handler()))
	e.POST("/twilio/voice", s.handleTwilioVoice)
	e.GET("/call", s.handleCall)

	s.echo = e
	return s
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.WithField("address", s.cfg.HTTPAddress).Info("http server starting")
	err := s.echo.Start(s.cfg.HTTPAddress)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting calls, closes live sessions and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.accepting.Store(false)
	s.mgr.CloseAll()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleWorkerStart(c echo.Context) error {
	s.accepting.Store(true)
	s.log.Info("worker accepting calls")
	return c.JSON(http.StatusOK, map[string]bool{"accepting": true})
}

// handleWorkerStop gates new calls off and force-closes the live ones.
func (s *Server) handleWorkerStop(c echo.Context) error {
	s.accepting.Store(false)
	s.mgr.CloseAll()
	s.log.Info("worker stopped")
	return c.JSON(http.StatusOK, map[string]bool{"accepting": false})
}

func (s *Server) handleSessions(c echo.Context) error {
	snaps := s.mgr.Snapshots()
	return c.JSON(http.StatusOK, map[string]any{
		"count":    len(snaps),
		"sessions": snaps,
	})
}

// handleTwilioVoice answers an inbound Twilio call with TwiML that bridges
// the caller onto the WebSocket call endpoint.
func (s *Server) handleTwilioVoice(c echo.Context) error {
	if params, ok := c.Get("twilioParams").(map[string]string); ok {
		s.log.WithFields(logrus.Fields{
			"from": params["From"],
			"to":   params["To"],
		}).Info("inbound voice call")
	}

	streamURL := "wss://" + c.Request().Host + "/call"
	if s.cfg.CallAuthToken != "" {
		streamURL += "?token=" + s.cfg.CallAuthToken
	}

	stream := &twiml.VoiceStream{Url: streamURL}
	connect := &twiml.VoiceConnect{InnerElements: []twiml.Element{stream}}
	response, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}

// handleCall upgrades the connection and hands it to a fresh session.
func (s *Server) handleCall(c echo.Context) error {
	if !s.accepting.Load() {
		return c.String(http.StatusServiceUnavailable, "not accepting calls")
	}
	conn, err := transport.Upgrade(c.Response().Writer, c.Request(), s.cfg.CallAuthToken, s.log)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return nil
	}

	sess := session.New(s.sessionConfig(), s.cat, s.ai, conn, s.met, s.log)
	s.mgr.Add(sess)
	s.log.WithField("session_id", sess.ID()).Info("call accepted")

	go func() {
		defer s.mgr.Remove(sess.ID())
		if err := sess.Run(context.Background()); err != nil {
			s.log.WithField("error", err.Error()).Error("session ended with error")
		}
	}()
	return nil
}

func (s *Server) sessionConfig() session.Config {
	return session.Config{
		MatchThreshold: s.cfg.MatchThreshold,
		CoopLowCutoff:  s.cfg.CoopLowCutoff,
		CoopHighCutoff: s.cfg.CoopHighCutoff,
		IdleTimeout:    s.cfg.IdleTimeout,
		StepRetryLimit: s.cfg.StepRetryLimit,
	}
}
