package proxmox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pve_sd_requests_total",
			Help: "Total count of requests to PVE API",
		},
	)

	requestErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pve_sd_requests_error_total",
			Help: "Total count of failed requests to PVE API",
		},
	)
)
