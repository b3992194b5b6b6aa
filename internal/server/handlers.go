package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) sections() []quota.Section {
	sections := quota.Mask(s.quotas.Sections(), s.masker)
	if sections == nil {
		sections = []quota.Section{}
	}
	return sections
}

func (s *Server) handleSections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sections": s.sections()})
}

type refreshRequest struct {
	File string `json:"file"`
}

// handleRefresh refreshes one file synchronously when a file is named and
// otherwise queues a full reload.
func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.File == "" {
		req.File = c.Query("file")
	}

	if req.File != "" {
		// A client that hangs up must not leave the entry failed with
		// "context canceled".
		ctx := context.WithoutCancel(c.Request.Context())
		if !s.quotas.RefreshFile(ctx, req.File) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown file: " + req.File})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sections": s.sections()})
		return
	}

	s.reload.RequestReload("api refresh")
	logging.FromContext(c.Request.Context()).Debug("reload requested over the API")
	c.JSON(http.StatusAccepted, gin.H{"status": "reload requested", "sections": s.sections()})
}

func (s *Server) handleConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": s.conns.States()})
}

// providerParam resolves :provider, writing a 400 when it is unknown.
func providerParam(c *gin.Context) (provider.Type, bool) {
	p, err := provider.Parse(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return provider.Unknown, false
	}
	return p, true
}

type startRequest struct {
	ProjectID string `json:"project_id"`
	Local     bool   `json:"local"`
}

func (s *Server) handleStart(c *gin.Context) {
	p, ok := providerParam(c)
	if !ok {
		return
	}
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	st, err := s.conns.StartAuth(c.Request.Context(), p, connect.StartOptions{
		ProjectID: req.ProjectID,
		Local:     req.Local,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, connect.ErrPremiumUnsupported) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error(), "connection": st})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": st})
}

func (s *Server) handleCancel(c *gin.Context) {
	p, ok := providerParam(c)
	if !ok {
		return
	}
	s.conns.Cancel(p)
	c.JSON(http.StatusOK, gin.H{"connection": s.conns.State(p)})
}

type callbackRequest struct {
	RedirectURL string `json:"redirect_url" binding:"required"`
}

func (s *Server) handleCallback(c *gin.Context) {
	p, ok := providerParam(c)
	if !ok {
		return
	}
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "redirect_url is required"})
		return
	}

	if err := s.conns.SubmitCallback(c.Request.Context(), p, req.RedirectURL); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "connection": s.conns.State(p)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connection": s.conns.State(p)})
}
