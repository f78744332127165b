package fuseadapter

import "github.com/prometheus/client_golang/prometheus"

// opCounter counts kernel filesystem requests by operation and outcome, the
// same shape distribution/distribution's registry handlers export for HTTP
// requests: one vector, labeled, registered once per process.
var opCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "doctagsfs",
	Name:      "operations_total",
	Help:      "Kernel filesystem operations served by the tag-VFS adapter.",
}, []string{"op", "result"})

func init() {
	prometheus.MustRegister(opCounter)
}

func observe(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	opCounter.WithLabelValues(op, result).Inc()
}
