package domain

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/spendwise/internal/jobs"
)

// JobMessage is a decoded job together with the delivery it arrived on
type JobMessage struct {
	Job      *jobs.Job
	Delivery amqp.Delivery
}
