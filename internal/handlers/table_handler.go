package handlers

import (
	"net/http"
	"strconv"

	"table-cache-api/internal/kvtable"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// PutRecordRequest is the body of PUT /api/tables/:table/records/:key.
type PutRecordRequest struct {
	Value *string `json:"value" binding:"required"`
}

// RecordResponse is one key/value pair.
type RecordResponse struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ListTables returns the tables on disk and the ones currently open.
// GET /api/tables
func (h *Handler) ListTables(c *gin.Context) {
	tables, err := h.reg.Tables()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tables": tables,
		"cached": h.reg.Cached(),
	})
}

// ListRecords returns one page of keys in a table.
// GET /api/tables/:table/records?offset=&limit=
func (h *Handler) ListRecords(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxPageSize)})
		return
	}

	name := c.Param("table")
	var (
		keys  []string
		total int64
	)
	err = h.reg.With(name, false, func(t *kvtable.Table) error {
		var err error
		if keys, err = t.Keys(offset, limit); err != nil {
			return err
		}
		total, err = t.Count()
		return err
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table":  name,
		"keys":   keys,
		"offset": offset,
		"limit":  limit,
		"total":  total,
	})
}

// GetRecord returns the value stored under a key.
// GET /api/tables/:table/records/:key
func (h *Handler) GetRecord(c *gin.Context) {
	name, key := c.Param("table"), c.Param("key")
	var value []byte
	err := h.reg.With(name, false, func(t *kvtable.Table) error {
		var err error
		value, err = t.Get(key)
		return err
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecordResponse{Table: name, Key: key, Value: string(value)})
}

// PutRecord stores a value, creating the table if it does not exist yet.
// PUT /api/tables/:table/records/:key
func (h *Handler) PutRecord(c *gin.Context) {
	var req PutRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. A value is required."})
		return
	}

	name, key := c.Param("table"), c.Param("key")
	err := h.reg.With(name, true, func(t *kvtable.Table) error {
		return t.Put(key, []byte(*req.Value))
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecordResponse{Table: name, Key: key, Value: *req.Value})
}

// DeleteRecord removes a key.
// DELETE /api/tables/:table/records/:key
func (h *Handler) DeleteRecord(c *gin.Context) {
	name, key := c.Param("table"), c.Param("key")
	err := h.reg.With(name, false, func(t *kvtable.Table) error {
		return t.Delete(key)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Record deleted"})
}

// SyncTable flushes a table to disk right away.
// POST /api/tables/:table/sync
func (h *Handler) SyncTable(c *gin.Context) {
	name := c.Param("table")
	if err := h.reg.With(name, false, (*kvtable.Table).Sync); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Table synced", "table": name})
}
