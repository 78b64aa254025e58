package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var prometheusBroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcasts_sent_total",
	Help: "Total number of broadcast messages sent",
})

var prometheusBroadcastsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcasts_received_total",
	Help: "Total number of broadcast messages received",
})

var prometheusChannelReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "channel_reconnects_total",
	Help: "Total number of realtime channel reconnect attempts",
})
