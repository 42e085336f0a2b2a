package handlers

import (
	"net/http"

	"table-cache-api/internal/cache"

	"github.com/gin-gonic/gin"
)

// CacheResponse describes the handle cache.
type CacheResponse struct {
	Capacity int         `json:"capacity"`
	Open     []string    `json:"open"`
	Stats    cache.Stats `json:"stats"`
}

// CacheStats returns the handle cache counters and the open tables from
// least to most recently used.
// GET /api/cache
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, CacheResponse{
		Capacity: h.reg.Capacity(),
		Open:     h.reg.Cached(),
		Stats:    h.reg.Stats(),
	})
}

// EvictTable closes a table's handle and drops it from the cache. The table
// file is left alone.
// DELETE /api/tables/:table/cache
func (h *Handler) EvictTable(c *gin.Context) {
	name := c.Param("table")
	if err := h.reg.Evict(name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Table handle closed", "table": name})
}
