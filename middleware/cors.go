package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"speedguard/config"
)

// SetupCORS builds the dashboard's CORS policy. The query surface only
// serves GET and POST; session tokens ride in the Authorization header, so
// cookie credentials are enabled only for an explicit origin list.
func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}

	origins := strings.Split(cfg.AllowedOrigins, ",")
	if len(origins) == 1 && origins[0] == "*" {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
		conf.AllowCredentials = true
	}

	return cors.New(conf)
}
