package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is matched by a response meaning the identity key has no remote profile.
	ErrNotFound = errors.New("not found")
	// ErrRemoteFailure is matched by every other failed remote call.
	ErrRemoteFailure = errors.New("remote failure")
)

// notFoundMessage is what the backend says when a profile does not exist.
const notFoundMessage = "User not found"

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	StatusCode int
	Message    string

	// identityLookup is set for the profile fetch, where a bare 404 means no profile.
	identityLookup bool
}

// Error returns the backend's message.
func (e *RemoteError) Error() (msg string) {
	msg = e.Message
	return msg
}

// Is lets errors.Is classify the response as ErrNotFound or ErrRemoteFailure, never both.
// Only a missing profile is ErrNotFound; a 404 for a project or work experience is ErrRemoteFailure.
func (e *RemoteError) Is(target error) (ok bool) {
	notFound := strings.Contains(e.Message, notFoundMessage) ||
		(e.identityLookup && e.StatusCode == http.StatusNotFound)

	switch target {
	case ErrNotFound:
		ok = notFound
	case ErrRemoteFailure:
		ok = !notFound
	}

	return ok
}

// newRemoteError builds a RemoteError from a status and raw body.
func newRemoteError(status int, body []byte) (remoteErr *RemoteError) {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	msg := strings.TrimSpace(parsed.Message)
	if msg == "" {
		msg = fmt.Sprintf("HTTP error, status %d", status)
	}

	remoteErr = &RemoteError{StatusCode: status, Message: msg}
	return remoteErr
}

// markIdentityLookup flags err, if it is a RemoteError, as the answer to a profile fetch.
func markIdentityLookup(err error) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		remoteErr.identityLookup = true
	}
}

// transportError marks network and decoding failures so they match ErrRemoteFailure.
type transportError struct {
	cause error
}

func (e *transportError) Error() (msg string) {
	msg = e.cause.Error()
	return msg
}

func (e *transportError) Unwrap() (cause error) {
	cause = e.cause
	return cause
}

func (e *transportError) Is(target error) (ok bool) {
	ok = target == ErrRemoteFailure
	return ok
}

// asTransportError wraps err with message so it matches ErrRemoteFailure.
func asTransportError(err error, message string) (wrapped error) {
	wrapped = &transportError{cause: errors.Wrap(err, message)}
	return wrapped
}
