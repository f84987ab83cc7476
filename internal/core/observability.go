package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MetricsRecorder observes the outcome and latency of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// AuditStatus is the outcome recorded for an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for the audit trail.
type AuditEntry struct {
	Operation  string        `json:"operation"`
	OwnerID    string        `json:"owner_id"`
	UserID     string        `json:"user_id,omitempty"`
	EntityID   string        `json:"entity_id,omitempty"`
	Status     AuditStatus   `json:"status"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// AuditRecorder receives audit entries for service operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// PrometheusRecorder exports operation counters and latencies together with
// the most recent occupancy and collection figures per owner.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	occupancy  *prometheus.GaugeVec
	collection *prometheus.GaugeVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staytrack",
			Name:      "operations_total",
			Help:      "Service operations by name and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staytrack",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "staytrack",
			Name:      "occupancy_percentage",
			Help:      "Active students over total bed capacity.",
		}, []string{"owner"}),
		collection: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "staytrack",
			Name:      "collection_percentage",
			Help:      "Paid active students over all active students for a month.",
		}, []string{"owner", "month"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{r.operations, r.latency, r.occupancy, r.collection} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "success"
	if !success {
		result = "error"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetOccupancy records the latest occupancy percentage for an owner.
func (r *PrometheusRecorder) SetOccupancy(ownerID string, pct float64) {
	r.occupancy.WithLabelValues(ownerID).Set(pct)
}

// SetCollection records the latest collection percentage for an owner's month.
func (r *PrometheusRecorder) SetCollection(ownerID, month string, pct float64) {
	r.collection.WithLabelValues(ownerID, month).Set(pct)
}

// gaugeSink is implemented by recorders that also track derived figures.
type gaugeSink interface {
	SetOccupancy(ownerID string, pct float64)
	SetCollection(ownerID, month string, pct float64)
}

// ZapAuditRecorder writes audit entries as structured log lines.
type ZapAuditRecorder struct {
	logger *zap.Logger
}

// NewZapAuditRecorder returns a recorder logging under the "audit" name.
func NewZapAuditRecorder(logger *zap.Logger) *ZapAuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditRecorder{logger: logger.Named("audit")}
}

// Record implements AuditRecorder.
func (r *ZapAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("owner_id", entry.OwnerID),
		zap.String("status", string(entry.Status)),
		zap.Duration("duration", entry.Duration),
		zap.Time("occurred_at", entry.OccurredAt),
	}
	if entry.UserID != "" {
		fields = append(fields, zap.String("user_id", entry.UserID))
	}
	if entry.EntityID != "" {
		fields = append(fields, zap.String("entity_id", entry.EntityID))
	}
	if entry.Status == AuditStatusError {
		fields = append(fields, zap.String("error", entry.Error))
		r.logger.Warn("operation failed", fields...)
		return
	}
	r.logger.Info("operation", fields...)
}
