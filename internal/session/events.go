package session

import (
	"authsession/internal/renewal"
	"authsession/internal/store"
)

// event is anything the controller loop applies. Requests from callers carry
// a reply channel, completions posted by background work do not.
type event interface {
	replyTo() chan error
}

type request struct {
	reply chan error
}

func newRequest() request {
	return request{reply: make(chan error, 1)}
}

func (r request) replyTo() chan error {
	return r.reply
}

type completion struct{}

func (completion) replyTo() chan error {
	return nil
}

type mounted struct{ request }

type loginRequested struct{ request }

type logoutRequested struct{ request }

type retryRequested struct{ request }

type expireRequested struct{ request }

type timerTick struct{ request }

type resumeRequested struct{ request }

type checkRequested struct {
	request
	preserveRoute bool
}

type codeReceived struct {
	request
	code string
}

type renewalMessage struct {
	completion
	attemptID string
	message   renewal.Message
}

type exchangeCompleted struct {
	completion
	attemptID string
	kind      attemptKind
	bundle    store.Bundle
	err       error
}

func eventName(ev event) string {
	switch ev.(type) {
	case mounted:
		return "mounted"
	case loginRequested:
		return "login_requested"
	case logoutRequested:
		return "logout_requested"
	case retryRequested:
		return "retry_requested"
	case expireRequested:
		return "expire_requested"
	case timerTick:
		return "timer_tick"
	case resumeRequested:
		return "resume_requested"
	case checkRequested:
		return "check_requested"
	case codeReceived:
		return "code_received"
	case renewalMessage:
		return "renewal_message"
	case exchangeCompleted:
		return "exchange_completed"
	default:
		return "unknown"
	}
}
