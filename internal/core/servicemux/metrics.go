package servicemux

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ============================================================================
//                              指标
// ============================================================================

// Metrics 服务多路复用指标
//
// nil *Metrics 是合法值，所有方法都是空操作。
type Metrics struct {
	inboundDropped     prometheus.Counter
	outboundRejected   prometheus.Counter
	requeued           prometheus.Counter
	requeueDropped     prometheus.Counter
	protocolViolations prometheus.Counter
	unmatchedAcks      prometheus.Counter
	unregistered       prometheus.Counter
	routed             prometheus.Counter
	channels           prometheus.Gauge
}

// NewMetrics 创建并注册指标
//
// 同名指标已注册时复用已有的收集器。
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) (prometheus.Counter, error) {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
					return existing, nil
				}
			}
			return nil, err
		}
		return c, nil
	}

	m := &Metrics{}
	var err error
	defs := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&m.inboundDropped, "inbound_dropped_total", "Inbound service messages dropped outside the sequence window."},
		{&m.outboundRejected, "outbound_rejected_total", "Outbound messages rejected because the pending queue was full."},
		{&m.requeued, "requeued_total", "Outstanding messages requeued after channel removal."},
		{&m.requeueDropped, "requeue_dropped_total", "Outstanding messages lost because the pending queue was full during requeue."},
		{&m.protocolViolations, "protocol_violations_total", "Unexpected message kinds that closed a service connection."},
		{&m.unmatchedAcks, "unmatched_acks_total", "Acknowledgements without a matching outstanding message."},
		{&m.unregistered, "unregistered_channel_total", "Events from channels not present in the registry."},
		{&m.routed, "messages_routed_total", "Outbound messages written to a channel."},
	}
	for _, d := range defs {
		if *d.dst, err = counter(d.name, d.help); err != nil {
			return nil, err
		}
	}

	channels := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "channels",
		Help:      "Physical channels currently registered across service connections.",
	})
	if err := reg.Register(channels); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, err
		}
		channels = existing
	}
	m.channels = channels
	return m, nil
}

func (m *Metrics) incInboundDropped() {
	if m != nil {
		m.inboundDropped.Inc()
	}
}

func (m *Metrics) incOutboundRejected() {
	if m != nil {
		m.outboundRejected.Inc()
	}
}

func (m *Metrics) addRequeued(n, dropped int) {
	if m != nil {
		m.requeued.Add(float64(n))
		m.requeueDropped.Add(float64(dropped))
	}
}

func (m *Metrics) incProtocolViolation() {
	if m != nil {
		m.protocolViolations.Inc()
	}
}

func (m *Metrics) incUnmatchedAck() {
	if m != nil {
		m.unmatchedAcks.Inc()
	}
}

func (m *Metrics) incUnregistered() {
	if m != nil {
		m.unregistered.Inc()
	}
}

func (m *Metrics) incRouted() {
	if m != nil {
		m.routed.Inc()
	}
}

func (m *Metrics) addChannels(n int) {
	if m != nil {
		m.channels.Add(float64(n))
	}
}
