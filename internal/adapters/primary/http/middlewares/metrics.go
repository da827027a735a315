package middlewares

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
)

// Metrics счётчик запросов по шаблону маршрута, неизвестные пути в одну метку
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
