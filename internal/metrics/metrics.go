package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scans counts scan attempts by result and meal type.
var Scans = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "canteen",
	Name:      "scans_total",
	Help:      "Scan attempts by result and meal type.",
}, []string{"result", "meal"})

// OrdersServed counts coupon orders transitioned to SERVED.
var OrdersServed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "canteen",
	Name:      "orders_served_total",
	Help:      "Orders served via coupon scans.",
})

// SubscriptionsExpired counts subscriptions swept to EXPIRED.
var SubscriptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "canteen",
	Name:      "subscriptions_expired_total",
	Help:      "Subscriptions moved to EXPIRED by the sweep.",
})
