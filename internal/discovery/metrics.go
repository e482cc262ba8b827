package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hostsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pve_sd_hosts",
			Help: "Number of hosts discovered by PVE SD",
		},
	)

	propagateSeconds = promauto.NewSummary(
		prometheus.SummaryOpts{
			Name: "pve_sd_propagate_seconds",
			Help: "Time spent propagating the inventory from PVE",
		},
	)
)
