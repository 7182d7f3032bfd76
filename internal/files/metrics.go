package files

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	trashToggles    *prometheus.CounterVec
	cascadedNodes   prometheus.Counter
	deletedNodes    prometheus.Counter
	uploadedBytes   prometheus.Counter
	cleanupFailures prometheus.Counter
}

// newServiceMetrics registers with reg; a nil reg yields unregistered
// collectors.
func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	f := promauto.With(reg)
	return &serviceMetrics{
		trashToggles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fylr_trash_toggles_total",
				Help: "Trash toggles by resulting state",
			},
			[]string{"action"},
		),
		cascadedNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "fylr_trash_cascaded_nodes_total",
			Help: "Descendant rows updated by trash cascades",
		}),
		deletedNodes: f.NewCounter(prometheus.CounterOpts{
			Name: "fylr_deleted_nodes_total",
			Help: "Rows permanently deleted",
		}),
		uploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "fylr_uploaded_bytes_total",
			Help: "Bytes accepted by the upload endpoint",
		}),
		cleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fylr_storage_cleanup_failures_total",
			Help: "Storage objects that could not be removed after their row was deleted",
		}),
	}
}
