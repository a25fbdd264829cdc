package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"warehouse-service/internal/service"
	"warehouse-service/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface
type Options struct {
	RequestTimeout time.Duration
	AllowOrigins   []string
}

// Handler contains HTTP handlers
type Handler struct {
	catalog *service.CatalogService
	ledger  *service.LedgerService
	alerts  *service.AlertService
	db      Pinger
	opts    Options
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	ledger *service.LedgerService,
	alerts *service.AlertService,
	db Pinger,
	opts Options,
) *Handler {
	return &Handler{
		catalog: catalog,
		ledger:  ledger,
		alerts:  alerts,
		db:      db,
		opts:    opts,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())
	router.Use(corsMiddleware(h.opts.AllowOrigins))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(timeoutMiddleware(h.opts.RequestTimeout))
	{
		api.POST("/scans", h.processScan)
		api.GET("/scans/recent", h.recentScans)

		api.GET("/inventory/levels", h.inventoryLevels)
		api.POST("/inventory/alerts/refresh", h.refreshAlerts)
		api.GET("/inventory/alerts", h.listAlerts)
		api.POST("/inventory/alerts/:id/resolve", h.resolveAlert)
		api.POST("/inventory/alerts/:id/cancel", h.cancelAlert)

		api.POST("/inventory/items", h.provisionItem)
		api.GET("/inventory/items/:tag", h.getItem)
		api.GET("/inventory/items/:tag/transactions", h.itemTransactions)

		api.GET("/products", h.listProducts)
		api.POST("/products", h.createProduct)
		api.GET("/products/:id", h.getProduct)
		api.PUT("/products/:id", h.updateProduct)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the database answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// processScan records an RFID scan
func (h *Handler) processScan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid request body", err))
		return
	}

	result, err := h.ledger.ProcessScan(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// recentScans lists the newest scan transactions
func (h *Handler) recentScans(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	txns, err := h.ledger.RecentTransactions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, txns)
}

// inventoryLevels returns per-product stock counts
func (h *Handler) inventoryLevels(c *gin.Context) {
	levels, err := h.alerts.ComputeInventoryLevels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, levels)
}

// refreshAlerts recomputes reorder alerts
func (h *Handler) refreshAlerts(c *gin.Context) {
	result, err := h.alerts.RefreshAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// listAlerts lists alerts filtered by status
func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListAlerts(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// resolveAlert marks a pending alert as ordered
func (h *Handler) resolveAlert(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	alert, err := h.alerts.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": alert.Status,
		"alert":  alert,
	})
}

// cancelAlert closes a pending alert without ordering
func (h *Handler) cancelAlert(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	alert, err := h.alerts.CancelAlert(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": alert.Status,
		"alert":  alert,
	})
}

// provisionItem registers a new tagged item
func (h *Handler) provisionItem(c *gin.Context) {
	var req service.ProvisionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid request body", err))
		return
	}

	item, err := h.ledger.ProvisionItem(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// getItem looks up an item by tag
func (h *Handler) getItem(c *gin.Context) {
	item, err := h.ledger.GetItem(c.Request.Context(), c.Param("tag"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// itemTransactions returns the audit trail of an item
func (h *Handler) itemTransactions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, err)
		return
	}

	txns, err := h.ledger.TransactionsForTag(c.Request.Context(), c.Param("tag"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, txns)
}

// listProducts returns the catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// createProduct adds a product to the catalog
func (h *Handler) createProduct(c *gin.Context) {
	var spec service.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondError(c, badRequest("invalid request body", err))
		return
	}
	spec.ID = 0

	product, err := h.catalog.UpsertProduct(c.Request.Context(), &spec)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// updateProduct overwrites a product's definition and policy
func (h *Handler) updateProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var spec service.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondError(c, badRequest("invalid request body", err))
		return
	}
	spec.ID = id

	product, err := h.catalog.UpsertProduct(c.Request.Context(), &spec)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id", nil)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means 0
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid "+name, err)
	}
	return v, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// requestLogger logs every request through the global zap logger
func requestLogger() gin.HandlerFunc {
	logger := util.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// timeoutMiddleware bounds every request with a context deadline
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	if !cfg.AllowAllOrigins && len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}

	return cors.New(cfg)
}
