package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "darasa",
		Name:      "messages_published_total",
		Help:      "Messages accepted by the gateway and published to Kafka.",
	})

	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "darasa",
		Name:      "messages_persisted_total",
		Help:      "Messages written to ScyllaDB by the persistence consumer.",
	})

	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "darasa",
		Name:      "gateway_connected_clients",
		Help:      "Websocket clients currently registered with the hub.",
	})

	HistoryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "darasa",
		Name:      "api_history_requests_total",
		Help:      "History fetches served by the API, by thread kind.",
	}, []string{"kind"})
)

// Handler exposes the default registry, mounted at /metrics on the api
// and gateway services.
func Handler() http.Handler {
	return promhttp.Handler()
}
