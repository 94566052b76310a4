package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/croptrace/internal/metrics"
	"github.com/mamadbah2/croptrace/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(stockHandler *handlers.StockHandler, reportHandler *handlers.ReportHandler, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger, m))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/lots", stockHandler.ListLots)
	records := r.Group("/records/:kind")
	{
		records.GET("", stockHandler.ListRecords)
		records.PUT("", stockHandler.SaveRecord)
		records.GET("/:id", stockHandler.GetRecord)
		records.DELETE("/:id", stockHandler.DeleteRecord)
	}
	r.PUT("/catalog/:collection", stockHandler.SaveCatalog)
	r.POST("/recost", stockHandler.Recost)

	r.GET("/alerts", reportHandler.Alerts)
	r.GET("/kpis", reportHandler.KPIs)
	r.GET("/recipes/:id/estimate", reportHandler.RecipeEstimate)
	r.POST("/send-message", reportHandler.SendMessage)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
