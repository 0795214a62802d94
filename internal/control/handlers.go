package control

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"afterschool/internal/eventbus"
	"afterschool/internal/watcher"
)

type lifecycleRequest struct {
	State string `json:"state" binding:"required"`
}

type enabledRequest struct {
	// Enabled nil clears the override.
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleLifecycle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lifecycleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		st, err := watcher.ParseAppState(req.State)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.deps.Watcher.AppStateChanged(st)
		c.JSON(http.StatusOK, s.deps.Watcher.Status())
	}
}

func (s *Server) handleEnabled() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Enabler == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "enable override not available"})
			return
		}
		var req enabledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		effective := s.deps.Enabler.SetOverride(req.Enabled)
		c.JSON(http.StatusOK, gin.H{
			"enabled":  effective,
			"override": req.Enabled,
			"status":   s.deps.Watcher.Status(),
		})
	}
}

func (s *Server) handlePoll() gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := s.deps.Watcher.PollNow(c.Request.Context())
		var fe *watcher.FetchError
		switch {
		case errors.Is(err, watcher.ErrDisabled), errors.Is(err, watcher.ErrClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &fe):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "cycle": rep})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, rep)
		}
	}
}

func (s *Server) handleStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.deps.Watcher.Status())
	}
}

// handleEvents returns recent events oldest first; ?limit=N keeps the newest N.
func (s *Server) handleEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		var evs []eventbus.Event
		if s.deps.Events != nil {
			evs = s.deps.Events.Snapshot()
		}
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			if n < len(evs) {
				evs = evs[len(evs)-n:]
			}
		}
		if evs == nil {
			evs = []eventbus.Event{}
		}
		c.JSON(http.StatusOK, gin.H{"events": evs})
	}
}

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok", "watcher": s.deps.Watcher.Status()}
		if s.deps.Health != nil {
			body["runtime"] = s.deps.Health()
		}
		c.JSON(http.StatusOK, body)
	}
}
