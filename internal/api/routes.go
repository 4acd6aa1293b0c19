package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig controls the middleware installed by NewRouter.
type RouterConfig struct {
	Release       bool
	EnableMetrics bool
	AuthToken     string
}

// NewRouter builds the gin engine with logging, recovery, optional metrics and
// the API routes.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	if cfg.EnableMetrics {
		p := ginprometheus.NewWithConfig(ginprometheus.Config{
			Subsystem:          "gin",
			DisableBodyReading: true,
		})
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			return c.FullPath()
		}
		r.Use(p.HandlerFunc())
	}

	RegisterRoutes(r, h, cfg.AuthToken)
	return r
}

func RegisterRoutes(r *gin.Engine, h *Handler, authToken string) {
	r.GET("/health", h.Health)

	// Authenticated routes
	authed := r.Group("/")
	if authToken != "" {
		authed.Use(tokenAuth(authToken))
	}
	{
		authed.GET("/languages", h.ListLanguages)
		authed.POST("/code/run", h.RunCode)
		authed.GET("/code/executions/:job_id", h.GetCodeExecution)
		authed.GET("/jobs/:id", h.GetJob)
	}
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) &&
			subtle.ConstantTimeCompare([]byte(reqToken[len(bearer):]), []byte(token)) == 1 {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid API token"})
	}
}
