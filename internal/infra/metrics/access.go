package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(accessChecksTotal) }

var accessChecksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_checks_total",
		Help: "Access decisions by outcome and reason.",
	},
	[]string{"granted", "reason"},
)

func IncAccessCheck(granted bool, reason string) {
	accessChecksTotal.WithLabelValues(strconv.FormatBool(granted), norm(reason)).Inc()
}
