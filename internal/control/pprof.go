package control

import (
	hpprof "net/http/pprof"

	"github.com/gin-gonic/gin"
)

// mountPprof serves the runtime profiles under /debug/pprof behind the same
// bearer auth as /v1.
func (s *Server) mountPprof(r *gin.Engine) {
	g := r.Group("/debug/pprof")
	g.Use(s.bearerAuth())
	g.GET("/cmdline", gin.WrapF(hpprof.Cmdline))
	g.GET("/profile", gin.WrapF(hpprof.Profile))
	g.GET("/symbol", gin.WrapF(hpprof.Symbol))
	g.POST("/symbol", gin.WrapF(hpprof.Symbol))
	g.GET("/trace", gin.WrapF(hpprof.Trace))
	// Index also renders the named profiles (heap, goroutine, ...) when the
	// path carries a name.
	g.GET("/", gin.WrapF(hpprof.Index))
	g.GET("/:name", gin.WrapF(hpprof.Index))
}
