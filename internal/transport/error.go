package transport

import (
	"errors"
	"fmt"

	gosmtp "github.com/emersion/go-smtp"
)

// ErrorKind identifies which stage of an SMTP session failed.
type ErrorKind string

const (
	// KindConnect means the relay could not be reached or the TLS
	// negotiation failed.
	KindConnect ErrorKind = "connect"
	// KindAuth means the relay rejected the credentials.
	KindAuth ErrorKind = "auth"
	// KindSend means the relay rejected the envelope or message data
	// after the session was established.
	KindSend ErrorKind = "send"
)

// DeliveryError wraps an SMTP session failure with its stage and, when the
// relay replied with a status code, that code.
type DeliveryError struct {
	Kind    ErrorKind
	Code    int // SMTP reply code, 0 when the failure was not a reply
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("transport: %s failed: %d %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("transport: %s failed: %s", e.Kind, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Kind returns the ErrorKind of err if it is a DeliveryError, or an empty
// string otherwise.
func Kind(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// classify builds a DeliveryError for the given session stage, extracting
// the SMTP reply code when the relay answered with one.
func classify(kind ErrorKind, err error) *DeliveryError {
	de := &DeliveryError{
		Kind:    kind,
		Message: err.Error(),
		Err:     err,
	}

	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		de.Code = smtpErr.Code
		de.Message = smtpErr.Message
	}
	return de
}
