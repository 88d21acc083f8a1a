package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesReceived counts inbound frames by kind
	FramesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "frames_received_total",
			Help:      "Total number of frames handed to the MAC",
		},
		[]string{"kind"},
	)

	// FramesDropped counts inbound or outbound frames the MAC discarded
	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped",
		},
		[]string{"reason"},
	)

	// FramesTransmitted counts frames put on the air
	FramesTransmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "frames_transmitted_total",
			Help:      "Total number of frames transmitted",
		},
		[]string{"kind"},
	)

	// TxFailures counts frames whose transmission failed
	TxFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "tx_failures_total",
			Help:      "Total number of failed transmissions",
		},
		[]string{"kind"},
	)

	// InjectionErrors counts failed injection attempts
	InjectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "injection_errors_total",
			Help:      "Total number of failed packet injection attempts",
		},
		[]string{"interface"},
	)

	// Associations counts association outcomes
	Associations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "associations_total",
			Help:      "Association attempts by result",
		},
		[]string{"result"},
	)

	// BeaconsSent counts queued beacons
	BeaconsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "beacons_total",
			Help:      "Total number of beacons queued",
		},
	)

	// StationsAssociated tracks the size of the associated-station list
	StationsAssociated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "apmac",
			Name:      "stations_associated",
			Help:      "Number of associated stations",
		},
	)

	// BlockAckAgreements tracks live receive-side agreements
	BlockAckAgreements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "apmac",
			Name:      "blockack_agreements",
			Help:      "Number of established Block-Ack agreements",
		},
	)

	// QueueDepth tracks frames waiting in each transmit queue
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "apmac",
			Name:      "queue_depth",
			Help:      "Frames waiting per transmit queue",
		},
		[]string{"queue"},
	)

	// MsdusDelivered counts MSDUs handed to the upper layer, by destination
	MsdusDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apmac",
			Name:      "msdus_delivered_total",
			Help:      "MSDUs delivered to the distribution system",
		},
		[]string{"destination"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// Drop reasons used with FramesDropped.
const (
	DropMalformed     = "malformed"
	DropNotAssociated = "not_associated"
	DropAPToAP        = "ap_to_ap"
	DropRoutingMiss   = "routing_miss"
	DropNotForUs      = "not_for_us"
	DropUnhandled     = "unhandled"
	DropAssocPending  = "assoc_pending"
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		prometheus.DefaultRegisterer.Register(FramesReceived)
		prometheus.DefaultRegisterer.Register(FramesDropped)
		prometheus.DefaultRegisterer.Register(FramesTransmitted)
		prometheus.DefaultRegisterer.Register(TxFailures)
		prometheus.DefaultRegisterer.Register(InjectionErrors)
		prometheus.DefaultRegisterer.Register(Associations)
		prometheus.DefaultRegisterer.Register(BeaconsSent)
		prometheus.DefaultRegisterer.Register(StationsAssociated)
		prometheus.DefaultRegisterer.Register(BlockAckAgreements)
		prometheus.DefaultRegisterer.Register(QueueDepth)
		prometheus.DefaultRegisterer.Register(MsdusDelivered)
	})
}
