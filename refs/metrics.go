package refs

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var ResolveCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "refs",
	Name:      "resolutions",
}, []string{"box"})

var DroppedKeyCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "refs",
	Name:      "dropped_keys",
}, []string{"box"})

var InvalidatedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hive",
	Subsystem: "refs",
	Name:      "invalidated_handles",
}, []string{"box"})

// RegisterMetrics registers the list bookkeeping counters with r. The
// counters are package-wide, a second store on the same registry is fine.
func RegisterMetrics(r prometheus.Registerer) {
	for _, c := range []prometheus.Collector{ResolveCount, DroppedKeyCount, InvalidatedCount} {
		if err := r.Register(c); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if !errors.As(err, &dup) {
				panic(err)
			}
		}
	}
}
