package control

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	logx "afterschool/pkg/logx"
)

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("control handler panicked",
					logx.String("method", c.Request.Method),
					logx.String("path", c.Request.URL.Path),
					logx.String("panic", fmt.Sprint(r)),
					logx.Stack(logx.StackTrace(3, 16)),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("control request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.FullPath()),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}

// bearerAuth is a no-op when no token is configured.
func (s *Server) bearerAuth() gin.HandlerFunc {
	want := []byte(strings.TrimSpace(s.cfg.Token))
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
