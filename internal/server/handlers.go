package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avagroups/internal/cache"
	"github.com/vyrodovalexey/avagroups/internal/groups"
	"github.com/vyrodovalexey/avagroups/internal/health"
	"github.com/vyrodovalexey/avagroups/internal/observability"
	"github.com/vyrodovalexey/avagroups/internal/server/middleware"
	"github.com/vyrodovalexey/avagroups/internal/transform"
)

// CacheHeader reports how the transform response was produced.
const CacheHeader = "X-Cache"

// Values of CacheHeader.
const (
	CacheHit    = "HIT"
	CacheMiss   = "MISS"
	CacheBypass = "BYPASS"
)

const (
	transformCacheNamespace = "transform"
	readyTimeout            = 2 * time.Second
	contentTypeJSON         = "application/json; charset=utf-8"
)

// mergeRequest is the body of the merge endpoint.
type mergeRequest struct {
	Strategy string           `json:"strategy"`
	Trees    []transform.Tree `json:"trees"`
}

type dataResponse struct {
	Data interface{} `json:"data"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.checker.Health())
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	resp := s.checker.Readiness(ctx)
	if resp.Status == health.StatusUnhealthy {
		fields := make([]observability.Field, 0, len(resp.Checks))
		for name, check := range resp.Checks {
			fields = append(fields, observability.String(name, check.Message))
		}
		s.logger.WithContext(c.Request.Context()).Warn("readiness check failed", fields...)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleTransform reshapes a result set. Responses are cached by the hash
// of the request body; cache trouble only costs the lookup.
func (s *Server) handleTransform(c *gin.Context) {
	ctx := c.Request.Context()
	logger := s.logger.WithContext(ctx)

	body, ok := s.readBody(c)
	if !ok {
		return
	}

	key := cache.Key(transformCacheNamespace, body)
	cacheState := CacheMiss
	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.Header(CacheHeader, CacheHit)
		c.Data(http.StatusOK, contentTypeJSON, cached)
		return
	case errors.Is(err, cache.ErrCacheMiss):
	case errors.Is(err, cache.ErrCacheDisabled):
		cacheState = CacheBypass
	default:
		cacheState = CacheBypass
		logger.Warn("cache lookup failed", observability.Error(err))
	}

	tree, err := s.transformer.Transform(ctx, body)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, groups.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error("transform failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	payload, err := json.Marshal(dataResponse{Data: tree})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode response"})
		return
	}

	if cacheState == CacheMiss {
		if err := s.cache.Set(ctx, key, payload, 0); err != nil {
			cacheState = CacheBypass
			logger.Warn("cache store failed", observability.Error(err))
		}
	}

	c.Header(CacheHeader, cacheState)
	c.Data(http.StatusOK, contentTypeJSON, payload)
}

func (s *Server) handleMerge(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	req, err := decodeMergeRequest(body)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merged, err := s.merger.Merge(req.Trees, req.Strategy)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dataResponse{Data: merged})
}

func decodeMergeRequest(body []byte) (*mergeRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req mergeRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("malformed merge request: %w", err)
	}
	if req.Trees == nil {
		return nil, errors.New("malformed merge request: trees is required")
	}
	return &req, nil
}

// readBody reads the whole body, answering 413 or 400 itself on failure.
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err == nil {
		return body, true
	}

	_ = c.Error(err)
	if middleware.IsBodyTooLarge(err) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": middleware.ErrBodyTooLarge})
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
	}
	return nil, false
}
