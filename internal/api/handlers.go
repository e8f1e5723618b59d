package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grantstream/internal/cache"
	"grantstream/internal/query"
)

const analyticsCacheKey = "analytics"

// InstanceHandler serves the instance and user read endpoints.
type InstanceHandler struct {
	Service *query.Service
	Logger  *zap.Logger
}

func (h *InstanceHandler) Register(r *gin.Engine) {
	r.GET("/instances", h.listInstances)
	r.GET("/instance/:address", h.getInstance)
	r.GET("/instance/:address/withdrawals", h.getWithdrawals)
	r.GET("/user/:address/instances", h.userInstances)
	r.GET("/admin/:address/pending-requests", h.pendingRequests)
}

func (h *InstanceHandler) listInstances(c *gin.Context) {
	var filter query.ListFilter
	if raw := c.Query("chainId"); raw != "" {
		chainID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid chainId")
			return
		}
		filter.ChainID = chainID
	}
	filter.Name = c.Query("name")
	filter.Address = c.Query("address")

	views, err := h.Service.ListInstances(c.Request.Context(), filter)
	if err != nil {
		var unsupported query.ErrUnsupportedChain
		if errors.As(err, &unsupported) {
			fail(c, http.StatusBadRequest, unsupported.Error())
			return
		}
		h.Logger.Error("list instances failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, views)
}

func (h *InstanceHandler) getInstance(c *gin.Context) {
	detail, err := h.Service.GetInstanceDetail(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.Logger.Error("instance detail failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if detail == nil {
		fail(c, http.StatusNotFound, "instance not found")
		return
	}
	ok(c, detail)
}

func (h *InstanceHandler) getWithdrawals(c *gin.Context) {
	history, err := h.Service.Withdrawals(c.Request.Context(), c.Param("address"), c.Query("member"))
	if err != nil {
		h.Logger.Error("withdrawal history failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if history == nil {
		fail(c, http.StatusNotFound, "instance not found")
		return
	}
	ok(c, history)
}

func (h *InstanceHandler) userInstances(c *gin.Context) {
	views, err := h.Service.UserInstances(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.Logger.Error("user instances failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, views)
}

func (h *InstanceHandler) pendingRequests(c *gin.Context) {
	pending, err := h.Service.PendingRequests(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.Logger.Error("pending requests failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	ok(c, pending)
}

// AnalyticsHandler serves the cross-chain rollup through a bounded TTL cache.
type AnalyticsHandler struct {
	Service *query.Service
	Cache   *cache.Cache
	Logger  *zap.Logger
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	r.GET("/analytics", h.analytics)
}

func (h *AnalyticsHandler) analytics(c *gin.Context) {
	if h.Cache != nil {
		if cached, found := h.Cache.Get(analyticsCacheKey); found {
			ok(c, cached)
			return
		}
	}

	analytics, err := h.Service.Analytics(c.Request.Context())
	if err != nil {
		h.Logger.Error("analytics failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	if h.Cache != nil {
		h.Cache.Set(analyticsCacheKey, analytics)
	}
	ok(c, analytics)
}

// Pinger reports store reachability. The Postgres store implements it; the
// in-memory store does not and readiness degrades to liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	Store Pinger
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.Store != nil {
		if err := h.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
