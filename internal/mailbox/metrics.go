package mailbox

import "github.com/prometheus/client_golang/prometheus"

// skippedHashes counts listed content hashes no backend could serve.
// A steadily growing value means a backend lost blobs it announced.
var skippedHashes = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "eppie",
	Subsystem: "mailbox",
	Name:      "skipped_hashes_total",
	Help:      "Listed content hashes that no configured backend could serve.",
})

func init() {
	prometheus.MustRegister(skippedHashes)
}
