package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outputWritesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "pve_sd_output_writes_total",
		Help: "Total count of output file rewrites",
	},
)
