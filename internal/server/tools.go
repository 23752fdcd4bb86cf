package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"toolhub/internal/hackernews"
	"toolhub/internal/wallhaven"
)

// handleHealth reports service readiness. The key check is local;
// ?deep=1 additionally probes the upstream gateway.
func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if !s.gw.Configured() {
		status = "error"
		code = http.StatusServiceUnavailable
	} else if c.Query("deep") == "1" && !s.gw.HealthCheck(c.Request.Context()) {
		status = "error"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "service": s.cfg.Service})
}

func (s *Server) handleHackerNewsDaily(c *gin.Context) {
	source := c.DefaultQuery("source", "topstories")
	limit, _ := strconv.Atoi(c.Query("limit"))

	digest, err := s.hn.Daily(c.Request.Context(), source, limit)
	if err != nil {
		if errors.Is(err, hackernews.ErrUnknownSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error().Err(err).Msg("hackernews digest failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch stories"})
		return
	}
	c.JSON(http.StatusOK, digest)
}

func (s *Server) handleWallhavenSearch(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	q := wallhaven.SearchQuery{
		Query:      c.Query("q"),
		Categories: c.Query("categories"),
		Purity:     c.Query("purity"),
		Sorting:    c.Query("sorting"),
		Order:      c.Query("order"),
		Page:       page,
		PerPage:    perPage,
	}

	res, err := s.wallhaven.Search(c.Request.Context(), q)
	if err != nil {
		s.wallhavenError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleWallhavenDetail(c *gin.Context) {
	wp, err := s.wallhaven.Wallpaper(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.wallhavenError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wp})
}

func (s *Server) wallhavenError(c *gin.Context, err error) {
	var apiErr *wallhaven.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message})
		return
	}
	s.logger.Error().Err(err).Msg("wallhaven request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": "wallpaper service unavailable"})
}
