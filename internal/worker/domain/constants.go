package domain

// Outcome is what happens to a delivery once its job has run
type Outcome int

const (
	// OutcomeAck removes the delivery, the job is done
	OutcomeAck Outcome = iota
	// OutcomeRetry publishes the next attempt and acks the current delivery
	OutcomeRetry
	// OutcomeDeadLetter rejects the delivery to the dead-letter exchange
	OutcomeDeadLetter
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRetry:
		return "retry"
	case OutcomeDeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}
