package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind classifies why an exchange did not produce an answer.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTimeout
	FailureNetwork
	FailureEndpointNotFound
	FailureMethodNotAllowed
	FailureServerError
	FailureClientError
	FailureMalformedResponse
	FailureRemote
	// FailureCanceled means the caller gave up; it says nothing about the
	// endpoint.
	FailureCanceled
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network"
	case FailureEndpointNotFound:
		return "endpoint_not_found"
	case FailureMethodNotAllowed:
		return "method_not_allowed"
	case FailureServerError:
		return "server_error"
	case FailureClientError:
		return "client_error"
	case FailureMalformedResponse:
		return "malformed_response"
	case FailureRemote:
		return "remote"
	case FailureCanceled:
		return "canceled"
	default:
		return "none"
	}
}

func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Failure is the error returned for a failed exchange.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	// Detail is the server's own message, when it sent one.
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	msg := f.Kind.String()
	if f.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, f.StatusCode)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// UserMessage is the text shown in the transcript for this failure.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case FailureTimeout:
		return "The server took too long to answer. It may be overloaded, please try again in a moment."
	case FailureNetwork:
		return "Cannot reach the chat server. Check your connection, the endpoint address, or its CORS settings."
	case FailureEndpointNotFound:
		return "The chat endpoint was not found (404). Check the endpoint configuration."
	case FailureMethodNotAllowed:
		return "The chat endpoint does not accept this request method (405). Check the HTTP verb it expects."
	case FailureServerError:
		return fmt.Sprintf("The chat server ran into an error (%d). Check the server logs.", f.StatusCode)
	case FailureClientError:
		if f.StatusCode == http.StatusTooManyRequests {
			return "Too many questions in a short time. Wait a moment and ask again."
		}
		return fmt.Sprintf("The chat server rejected the request (%d).", f.StatusCode)
	case FailureMalformedResponse:
		return "The chat server answered with an unexpected response shape."
	case FailureRemote:
		if f.Detail != "" {
			return f.Detail
		}
		return "The assistant could not answer this question."
	case FailureCanceled:
		return "The question was cancelled before an answer arrived."
	default:
		return "Something went wrong."
	}
}

// AsFailure extracts a *Failure from err, classifying unknown errors as
// network failures.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return classifyTransport(err)
}

func classifyTransport(err error) *Failure {
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailureCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureNetwork, Err: err}
}

func classifyStatus(code int, detail string) *Failure {
	f := &Failure{StatusCode: code, Detail: detail}
	switch {
	case code == http.StatusNotFound:
		f.Kind = FailureEndpointNotFound
	case code == http.StatusMethodNotAllowed:
		f.Kind = FailureMethodNotAllowed
	case code >= 500:
		f.Kind = FailureServerError
	default:
		f.Kind = FailureClientError
	}
	return f
}
