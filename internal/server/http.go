package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", s.httpHealthGet)
	router.GET("/targets", s.httpTargetsGet)

	return router
}

// httpHealthGet answers 503 until the first pass succeeded.
func (s *Server) httpHealthGet(c *gin.Context) {
	hosts, updated := s.Hosts()
	if hosts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "pending"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"hosts":   hosts.Len(),
		"updated": updated.UTC(),
	})
}

// httpTargetsGet serves the last inventory in the http_sd format.
func (s *Server) httpTargetsGet(c *gin.Context) {
	hosts, _ := s.Hosts()
	if hosts == nil {
		hosts = inventory.NewHostList()
	}

	c.JSON(http.StatusOK, hosts)
}
