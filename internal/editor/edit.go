package editor

import (
	"context"
)

// Severity of a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

// Dialog is the modal surface a frontend offers for questions and messages.
type Dialog interface {
	// Confirm asks a yes/no question.
	Confirm(question string) bool
	// Notify shows a message and returns once it has been acknowledged.
	Notify(severity Severity, message string)
}

// Submit runs Save and, when the DSN already exists, the overwrite
// confirmation through d. Failures are reported through d.Notify.
func (s *Session) Submit(ctx context.Context, d Dialog) Outcome {
	out := s.Save(ctx)
	for out == OutcomeConfirm {
		out = s.ConfirmOverwrite(ctx, d.Confirm(MsgOverwrite))
	}
	if out == OutcomeInvalid || out == OutcomeFailed {
		for _, msg := range s.messages {
			d.Notify(SeverityError, msg)
		}
	}
	return out
}

// Check runs Test and reports the result through d.
func (s *Session) Check(ctx context.Context, d Dialog) Outcome {
	out := s.Test(ctx)
	switch out {
	case OutcomeTestOK:
		d.Notify(SeverityInfo, MsgConnectionSuccess)
	case OutcomeTestFailed, OutcomeInvalid:
		for _, msg := range s.messages {
			d.Notify(SeverityError, msg)
		}
	}
	return out
}

// Frontend presents a Session to the user until it is closed.
type Frontend interface {
	Run(ctx context.Context, s *Session) error
}

// FrontendFunc adapts a function to Frontend.
type FrontendFunc func(ctx context.Context, s *Session) error

func (f FrontendFunc) Run(ctx context.Context, s *Session) error {
	return f(ctx, s)
}

// Edit opens a session for opts, hands it to fe and returns the accepted
// connection string. A cancelled session, or one the frontend leaves open,
// yields the empty string.
func Edit(ctx context.Context, opts Options, fe Frontend) (string, error) {
	s, err := New(opts)
	if err != nil {
		return "", err
	}
	if err := fe.Run(ctx, s); err != nil {
		s.Cancel()
		return "", err
	}
	if s.State() != StateClosed {
		s.Cancel()
	}
	result, _ := s.Result()
	return result, nil
}
