package subscriber

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusSubscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscriptions_total",
	Help: "Total number of track subscriptions started",
})

var prometheusSubscriptionsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscriptions_succeeded_total",
	Help: "Total number of track subscriptions established",
})

var prometheusSubscriptionsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscriptions_failed_total",
	Help: "Total number of track subscriptions that failed after all retries",
})

var prometheusSubscriptionsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscriptions_superseded_total",
	Help: "Total number of track subscriptions superseded by a newer descriptor",
})

var prometheusSubscriptionRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscription_retries_total",
	Help: "Total number of track pull retries",
})
