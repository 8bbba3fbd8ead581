package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inventario"

// LedgerMetrics contadores del motor de stock, garantías y HTTP.
// Un *LedgerMetrics nil (o creado sin registerer) no registra nada.
type LedgerMetrics struct {
	applied      *prometheus.CounterVec
	units        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	reversed     *prometheus.CounterVec
	deleteBlock  prometheus.Counter
	claims       *prometheus.CounterVec
	loanRejected *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewLedgerMetrics registra las métricas en el registerer indicado.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_applied_total",
			Help:      "Movimientos confirmados por tipo.",
		}, []string{"kind"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movement_units_total",
			Help:      "Unidades movidas por tipo.",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_rejected_total",
			Help:      "Movimientos rechazados por tipo y motivo.",
		}, []string{"kind", "reason"}),
		reversed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_reversed_total",
			Help:      "Movimientos borrados y revertidos.",
		}, []string{"kind"}),
		deleteBlock: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_delete_blocked_total",
			Help:      "Borrados de ítems rechazados por tener movimientos.",
		}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warranty_claims_created_total",
			Help:      "Garantías creadas, según asociación a ítem y préstamo.",
		}, []string{"linked", "loan"}),
		loanRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warranty_loans_rejected_total",
			Help:      "Garantías con préstamo abortadas por motivo.",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.applied, m.units, m.rejected, m.reversed, m.deleteBlock, m.claims, m.loanRejected, m.httpDuration)
	return m
}

// MovementApplied cuenta un movimiento confirmado y sus unidades.
func (m *LedgerMetrics) MovementApplied(kind string, quantity int64) {
	if m == nil || m.applied == nil {
		return
	}
	m.applied.WithLabelValues(normalizeLabel(kind)).Inc()
	m.units.WithLabelValues(normalizeLabel(kind)).Add(float64(quantity))
}

// MovementRejected cuenta un rechazo.
func (m *LedgerMetrics) MovementRejected(kind, reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(kind), normalizeLabel(reason)).Inc()
}

// MovementReversed cuenta un borrado de movimiento.
func (m *LedgerMetrics) MovementReversed(kind string) {
	if m == nil || m.reversed == nil {
		return
	}
	m.reversed.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ItemDeleteBlocked cuenta un borrado bloqueado por la guardia.
func (m *LedgerMetrics) ItemDeleteBlocked() {
	if m == nil || m.deleteBlock == nil {
		return
	}
	m.deleteBlock.Inc()
}

// ClaimCreated cuenta una garantía confirmada.
func (m *LedgerMetrics) ClaimCreated(linked, withLoan bool) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.WithLabelValues(strconv.FormatBool(linked), strconv.FormatBool(withLoan)).Inc()
}

// LoanRejected cuenta una garantía con préstamo abortada.
func (m *LedgerMetrics) LoanRejected(reason string) {
	if m == nil || m.loanRejected == nil {
		return
	}
	m.loanRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveHTTP registra la duración de una petición. route es el patrón, no el path concreto.
func (m *LedgerMetrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil || m.httpDuration == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
