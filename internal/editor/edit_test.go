package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDialog struct {
	answers   []bool
	questions []string
	notes     []string
	errors    int
}

func (d *fakeDialog) Confirm(question string) bool {
	d.questions = append(d.questions, question)
	if len(d.answers) == 0 {
		return false
	}
	yes := d.answers[0]
	d.answers = d.answers[1:]
	return yes
}

func (d *fakeDialog) Notify(severity Severity, message string) {
	d.notes = append(d.notes, message)
	if severity == SeverityError {
		d.errors++
	}
}

func TestSubmit_ConfirmsOverwrite(t *testing.T) {
	save := &recorder{replies: []reply{{code: StatusDSNExists}, {code: StatusOK}}}
	s := newSession(t, profile.ModeConnect, scenario, &recorder{}, save)
	d := &fakeDialog{answers: []bool{true}}

	out := s.Submit(context.Background(), d)

	assert.Equal(t, OutcomeSaved, out)
	assert.Equal(t, []string{MsgOverwrite}, d.questions)
	assert.Len(t, save.calls, 2)
	assert.Empty(t, d.notes)
}

func TestSubmit_ReportsFailure(t *testing.T) {
	save := &recorder{replies: []reply{{code: StatusNameInvalid}}}
	s := newSession(t, profile.ModeEdit, scenario+";dsn=Local", &recorder{}, save)
	d := &fakeDialog{}

	assert.Equal(t, OutcomeFailed, s.Submit(context.Background(), d))
	assert.Equal(t, []string{MsgInvalidName}, d.notes)
	assert.Equal(t, 1, d.errors)
}

func TestCheck(t *testing.T) {
	test := &recorder{replies: []reply{{code: StatusOK}, {code: StatusGeneric, msg: "timeout"}}}
	s := newSession(t, profile.ModeEdit, scenario, test, &recorder{})
	d := &fakeDialog{}

	assert.Equal(t, OutcomeTestOK, s.Check(context.Background(), d))
	assert.Equal(t, OutcomeTestFailed, s.Check(context.Background(), d))
	assert.Equal(t, []string{"Connection Success", "Connection Failed: timeout"}, d.notes)
	assert.Equal(t, 1, d.errors)
}

func TestEdit(t *testing.T) {
	opts := Options{
		Mode:             profile.ModeEdit,
		ConnectionString: scenario,
		Test:             (&recorder{}).callback,
		Save:             (&recorder{}).callback,
		Logger:           logger.Nop(),
	}

	t.Run("accepted", func(t *testing.T) {
		result, err := Edit(context.Background(), opts, FrontendFunc(func(ctx context.Context, s *Session) error {
			if err := s.Set(profile.KeyDSN, "Local"); err != nil {
				return err
			}
			s.Submit(ctx, &fakeDialog{})
			return nil
		}))
		require.NoError(t, err)
		assert.Contains(t, result, "dsn=Local")
	})

	t.Run("cancelled", func(t *testing.T) {
		result, err := Edit(context.Background(), opts, FrontendFunc(func(ctx context.Context, s *Session) error {
			s.Cancel()
			return nil
		}))
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("left open", func(t *testing.T) {
		result, err := Edit(context.Background(), opts, FrontendFunc(func(ctx context.Context, s *Session) error {
			return nil
		}))
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("frontend error", func(t *testing.T) {
		boom := errors.New("terminal closed")
		result, err := Edit(context.Background(), opts, FrontendFunc(func(ctx context.Context, s *Session) error {
			return boom
		}))
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, result)
	})

	t.Run("malformed input", func(t *testing.T) {
		bad := opts
		bad.ConnectionString = "dsn={x"
		_, err := Edit(context.Background(), bad, FrontendFunc(func(ctx context.Context, s *Session) error {
			t.Fatal("frontend must not run")
			return nil
		}))
		assert.Error(t, err)
	})
}
