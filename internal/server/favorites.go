package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"toolhub/internal/favorites"
	"toolhub/internal/metrics"
)

func (s *Server) namespaceStore(c *gin.Context) (*favorites.Store, bool) {
	st, ok := s.favoritesStore(c.Param("ns"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid namespace"})
		return nil, false
	}
	return st, true
}

func (s *Server) handleListCollections(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	cols, err := st.Collections(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": cols})
}

func (s *Server) handleCreateCollection(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}
	if body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameter: name"})
		return
	}

	col, err := st.CreateCollection(c.Request.Context(), body.Name, body.Description)
	if err != nil {
		s.storeError(c, err)
		return
	}
	metrics.Global().FavoritesWrites.Inc()
	c.JSON(http.StatusCreated, col)
}

func (s *Server) handleUpdateCollection(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	var patch favorites.CollectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}

	col, err := st.UpdateCollection(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.storeError(c, err)
		return
	}
	if col == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	metrics.Global().FavoritesWrites.Inc()
	c.JSON(http.StatusOK, col)
}

func (s *Server) handleDeleteCollection(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	if err := st.DeleteCollection(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	metrics.Global().FavoritesWrites.Inc()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListItems(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	items, err := st.FavoritesByCollection(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleAddItem(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	var body struct {
		ExternalID string          `json:"externalId"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON in request body"})
		return
	}
	if body.ExternalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameter: externalId"})
		return
	}

	item, err := st.AddToCollection(c.Request.Context(), c.Param("id"), body.ExternalID, body.Payload)
	if err != nil {
		if errors.Is(err, favorites.ErrCollectionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
			return
		}
		s.storeError(c, err)
		return
	}
	metrics.Global().FavoritesWrites.Inc()
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	if err := st.RemoveFromCollection(c.Request.Context(), c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	metrics.Global().FavoritesWrites.Inc()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleContains(c *gin.Context) {
	st, ok := s.namespaceStore(c)
	if !ok {
		return
	}
	externalID := c.Query("externalId")
	if externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required parameter: externalId"})
		return
	}
	contains, err := st.IsInCollection(c.Request.Context(), c.Param("id"), externalID)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contains": contains})
}

func (s *Server) storeError(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("favorites store failure")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
}
