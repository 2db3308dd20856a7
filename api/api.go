package api

import (
	"errors"
	"fmt"
	"net/http"
	"rankbacktest/internal/app"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	"rankbacktest/internal/metrics"
	"rankbacktest/internal/repository"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ApiHandler struct {
	BacktestApp app.BacktestApp
	// optional; run lookups return 404 without it
	BacktestRunRepository repository.BacktestRunRepository
	// relative data paths in request configs resolve here
	DataDir string
	Logger  *zap.SugaredLogger
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to rankbacktest"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/backtest", m.backtest)
	router.GET("/runs", m.listRuns)
	router.GET("/runs/:id", m.getRun)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	return m.InitializeRouterEngine().Run(fmt.Sprintf(":%d", port))
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, errorCode(err))
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.FromContext(c.Request.Context()).Errorw("request failed", "status", code, "error", err.Error())
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

func errorCode(err error) int {
	if errors.Is(err, domain.ErrConfiguration) || errors.Is(err, domain.ErrOptimizerInfeasible) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// logRequestMiddleware attaches the request logger to the request context
// and logs the outcome once the handler returns.
func (m ApiHandler) logRequestMiddleware(ctx *gin.Context) {
	log := m.Logger
	if log == nil {
		log = logger.New()
	}
	log = log.With("method", ctx.Request.Method, "route", ctx.Request.URL.Path)
	ctx.Request = ctx.Request.WithContext(logger.NewContext(ctx.Request.Context(), log))

	start := time.Now().UTC()
	ctx.Next()

	log.Infow(
		"handled request",
		"status", ctx.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
		"ip", ctx.ClientIP(),
	)
}
