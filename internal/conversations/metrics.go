// internal/conversations/metrics.go

package conversations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conversations_created_total",
		Help: "Total number of conversations created",
	})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Total number of messages sent",
	})

	messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_deleted_total",
		Help: "Total number of messages soft or hard deleted",
	})

	messagesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_read_total",
		Help: "Total number of messages marked as read",
	})
)
