package delivery

import "net/http"

// Outcome classifies a finished attempt.
type Outcome int

const (
	// OutcomeDelivered means the target answered 2xx.
	OutcomeDelivered Outcome = iota

	// OutcomeFailed covers transport errors and every other status. Failed
	// attempts are not retried.
	OutcomeFailed

	// OutcomeGone means the target answered 410 and will never accept
	// deliveries again.
	OutcomeGone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeGone:
		return "gone"
	default:
		return "failed"
	}
}

// Classify maps a result to its outcome.
func Classify(res Result) Outcome {
	code := res.StatusCode
	switch {
	case code == http.StatusGone:
		return OutcomeGone
	case code >= 200 && code < 300 && res.Error == "":
		return OutcomeDelivered
	default:
		return OutcomeFailed
	}
}
