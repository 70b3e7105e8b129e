// Package editor implements the DSN editor session: the object a frontend
// drives to edit one connection profile and hand it to the driver.
//
// A Session is single-owner and not safe for concurrent use. Save and Test
// call the injected callbacks synchronously with the caller's context; the
// session adds no timeout of its own.
package editor

import (
	"context"
	"strings"

	"github.com/koustreak/dsneditor/internal/connstr"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/validate"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	StateEditing State = iota
	StateValidating
	StateSaving
	StateTesting
	StateAwaitingConfirmation
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSaving:
		return "saving"
	case StateTesting:
		return "testing"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Outcome is the result of a Save, ConfirmOverwrite or Test action.
type Outcome int

const (
	// OutcomeDisabled: the action is not available in the current state.
	OutcomeDisabled Outcome = iota
	// OutcomeInvalid: local validation failed; see Messages.
	OutcomeInvalid
	// OutcomeFailed: the save callback reported an error; see Messages.
	OutcomeFailed
	// OutcomeConfirm: the DSN exists and the user must confirm the overwrite.
	OutcomeConfirm
	// OutcomeDeclined: the user declined to overwrite.
	OutcomeDeclined
	// OutcomeSaved: the DSN was accepted and the session is closed.
	OutcomeSaved
	OutcomeTestOK
	OutcomeTestFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	case OutcomeConfirm:
		return "confirm"
	case OutcomeDeclined:
		return "declined"
	case OutcomeSaved:
		return "saved"
	case OutcomeTestOK:
		return "test_ok"
	case OutcomeTestFailed:
		return "test_failed"
	default:
		return "unknown"
	}
}

// Options configure a Session.
type Options struct {
	Mode             profile.Mode
	ConnectionString string
	Test             Callback
	Save             Callback
	Logger           *logger.Logger
}

// Session edits a single connection profile.
type Session struct {
	mode profile.Mode
	test Callback
	save Callback
	log  *logger.Logger

	p          *profile.Profile
	enablement profile.Enablement
	state      State
	messages   []string

	// proxyPortTyped is set once the user enters a proxy port, which stops
	// proxy type changes from replacing it with the protocol default.
	proxyPortTyped bool

	result   string
	accepted bool
}

// New decodes opts.ConnectionString and returns a session in the Editing
// state. A malformed connection string is an errs.ErrKindParseFailed error.
func New(opts Options) (*Session, error) {
	if opts.Test == nil || opts.Save == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "test and save callbacks are required")
	}

	p, err := profile.Decode(opts.ConnectionString)
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}

	s := &Session{
		mode: opts.Mode,
		test: opts.Test,
		save: opts.Save,
		log:  log.With().Str("component", "editor").Str("mode", opts.Mode.String()).Logger(),
		p:    p,
	}
	p.ApplyCloudID()
	s.refresh()
	s.state = StateEditing

	s.log.With().Str("dsn", p.Name).Bool("cloud", p.CloudID != "").Logger().Debug("session loaded")
	return s, nil
}

// --- accessors ---

func (s *Session) State() State       { return s.state }
func (s *Session) Mode() profile.Mode { return s.mode }

// Profile returns a copy of the profile being edited.
func (s *Session) Profile() *profile.Profile {
	return s.p.Clone()
}

// Enablement returns the control state derived from the current profile.
func (s *Session) Enablement() profile.Enablement {
	return s.enablement
}

// Messages returns the user-facing messages of the last action.
func (s *Session) Messages() []string {
	return append([]string(nil), s.messages...)
}

// ConnectionString encodes the current profile.
func (s *Session) ConnectionString() string {
	return profile.Encode(s.p)
}

// Result returns the accepted connection string. ok is false while the
// session is open and after Cancel.
func (s *Session) Result() (string, bool) {
	return s.result, s.accepted
}

// --- edits ---

// Set assigns value to the field bound to keyword key. Keywords outside the
// schema are kept verbatim. Disabled controls and malformed values are
// rejected with an errs.ErrKindInvalidInput error.
func (s *Session) Set(key, value string) error {
	if err := s.editable(); err != nil {
		return err
	}

	f, ok := profile.Lookup(key)
	if !ok {
		s.setExtra(key, value)
		return nil
	}
	if f.Key == profile.KeyProxyType {
		return s.SetProxyType(value)
	}
	if !s.enablement.Field(f.Key) {
		return errs.Newf(errs.ErrKindInvalidInput, "%s is disabled", f.Label)
	}
	if err := f.Set(s.p, value); err != nil {
		return err
	}
	if f.Key == profile.KeyProxyPort {
		s.proxyPortTyped = true
	}

	if f.Key == profile.KeyCloudID && s.p.ApplyCloudID() {
		s.log.Debug("cloud id set, server and port cleared")
	}
	s.refresh()
	return nil
}

// SetProxyType selects the proxy protocol and, unless the user already typed
// a proxy port, sets the port to the protocol's conventional default.
func (s *Session) SetProxyType(value string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if !s.enablement.ProxyType {
		return errs.New(errs.ErrKindInvalidInput, "Proxy type is disabled")
	}
	t, ok := profile.ParseProxyType(value)
	if !ok {
		return errs.Newf(errs.ErrKindInvalidInput, "invalid proxy type %q", value)
	}
	s.p.ProxyType = t
	if !s.proxyPortTyped {
		s.p.ProxyPort = profile.DefaultProxyPort(t)
	}
	s.refresh()
	return nil
}

// BrowseCertificate accepts a picked certificate file after validating it.
func (s *Session) BrowseCertificate(path string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if !s.enablement.Certificate {
		return errs.New(errs.ErrKindInvalidInput, "Certificate file is disabled")
	}
	if err := validate.CertificateFile(path); err != nil {
		return err
	}
	s.p.CertificatePath = path
	return nil
}

// BrowseLogDirectory accepts a picked log directory after validating it.
func (s *Session) BrowseLogDirectory(path string) error {
	if err := s.editable(); err != nil {
		return err
	}
	if !s.enablement.LogDirectory {
		return errs.New(errs.ErrKindInvalidInput, "Log directory is disabled")
	}
	if err := validate.LogDirectory(path, s.p.LoggingEnabled); err != nil {
		return err
	}
	s.p.LogDirectory = path
	return nil
}

func (s *Session) setExtra(key, value string) {
	attrs := connstr.FromPairs(s.p.Extra...)
	attrs.Set(key, value)
	s.p.Extra = attrs.Pairs()
}

func (s *Session) editable() error {
	if s.state != StateEditing {
		return errs.Newf(errs.ErrKindInvalidInput, "session is %s", s.state)
	}
	return nil
}

func (s *Session) refresh() {
	s.enablement = profile.ComputeEnablement(s.p, s.mode)
}

// --- actions ---

// Save validates the profile and hands it to the save callback.
//
// A StatusDSNExists answer moves the session to AwaitingConfirmation and
// returns OutcomeConfirm; the frontend then calls ConfirmOverwrite.
func (s *Session) Save(ctx context.Context) Outcome {
	if s.state != StateEditing || !s.enablement.Save {
		return OutcomeDisabled
	}
	if !s.check() {
		return OutcomeInvalid
	}
	return s.store(ctx, 0)
}

// ConfirmOverwrite answers the overwrite question. Yes retries the save with
// FlagOverwrite; no returns to Editing.
func (s *Session) ConfirmOverwrite(ctx context.Context, yes bool) Outcome {
	if s.state != StateAwaitingConfirmation {
		return OutcomeDisabled
	}
	if !yes {
		s.state = StateEditing
		s.messages = nil
		return OutcomeDeclined
	}
	return s.store(ctx, FlagOverwrite)
}

// Test validates the profile and hands it to the test callback. The session
// stays open whatever the result.
func (s *Session) Test(ctx context.Context) Outcome {
	if s.state != StateEditing || !s.enablement.Test {
		return OutcomeDisabled
	}
	if !s.check() {
		return OutcomeInvalid
	}

	s.state = StateTesting
	raw := profile.Encode(s.p)
	code, msg := s.test(ctx, raw, 0)
	s.state = StateEditing

	if code >= 0 {
		s.messages = []string{MsgConnectionSuccess}
		s.log.Info("connection test succeeded")
		return OutcomeTestOK
	}

	text := MsgConnectionFailed
	if msg != "" {
		text += ": " + msg
	}
	s.messages = []string{text}
	s.log.With().Int("status", code).Logger().Warn("connection test failed")
	return OutcomeTestFailed
}

// Cancel discards the profile and closes the session, rejecting the edit.
// It is a no-op while a callback is in flight; frontends cancel once the
// action has returned.
func (s *Session) Cancel() {
	switch s.state {
	case StateValidating, StateSaving, StateTesting:
		s.log.Debug("cancel ignored while a callback is running")
		return
	}
	s.p = profile.Default()
	s.p.Extra = nil
	s.refresh()
	s.result = ""
	s.accepted = false
	s.messages = nil
	s.state = StateClosed
	s.log.Debug("session cancelled")
}

// check runs the validators, leaving the session in Editing on failure.
func (s *Session) check() bool {
	s.state = StateValidating
	problems := validate.Profile(s.p)
	s.state = StateEditing
	if len(problems) == 0 {
		s.messages = nil
		return true
	}
	s.messages = validate.Messages(problems)
	s.log.With().Int("problems", len(problems)).Logger().Debug("validation failed")
	return false
}

func (s *Session) store(ctx context.Context, flags Flags) Outcome {
	s.state = StateSaving
	raw := profile.Encode(s.p)
	code, msg := s.save(ctx, raw, flags)

	overwrite := flags&FlagOverwrite != 0
	if code >= 0 || (overwrite && code == StatusDSNExists) {
		s.result = raw
		s.accepted = true
		s.messages = nil
		s.state = StateClosed
		s.log.With().Str("dsn", s.p.Name).Bool("overwrite", overwrite).Logger().Info("dsn accepted")
		return OutcomeSaved
	}

	if !overwrite && code == StatusDSNExists {
		s.state = StateAwaitingConfirmation
		s.messages = []string{MsgOverwrite}
		return OutcomeConfirm
	}

	if strings.TrimSpace(msg) == "" {
		if code == StatusNameInvalid {
			msg = MsgInvalidName
		} else {
			msg = MsgSaveFailed
		}
	}
	s.messages = []string{msg}
	s.state = StateEditing
	s.log.With().Int("status", code).Logger().Warn("save failed")
	return OutcomeFailed
}
