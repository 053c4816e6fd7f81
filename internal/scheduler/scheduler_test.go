package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daladno/upcoming/internal/domain"
	"github.com/daladno/upcoming/internal/render"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  int
	agenda domain.Agenda
	err    error
}

func (f *fakeSource) Upcoming(ctx context.Context) (domain.Agenda, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.agenda, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	texts []string
	err   error
}

func (f *fakeSender) Send(text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

func oneEvent() domain.Agenda {
	return domain.Agenda{Events: []domain.CanonicalEvent{{
		Summary: "Dentist",
		Start:   time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC),
	}}}
}

func TestNew_BadSchedule(t *testing.T) {
	_, err := New("every morning", time.UTC, &fakeSource{}, render.MustParse("{summary}"), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	var buf bytes.Buffer
	src := &fakeSource{agenda: oneEvent()}
	sender := &fakeSender{}

	s, err := New("0 7 * * *", time.UTC, src, render.MustParse("{start:%d %b} {summary}"), &buf, zerolog.Nop())
	require.NoError(t, err)
	s.SetSender(sender)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, "18 Mar Dentist\n", buf.String())
	assert.Equal(t, []string{"18 Mar Dentist"}, sender.texts)
}

func TestRunOnce_SentMessageNamesWindow(t *testing.T) {
	var buf bytes.Buffer
	agenda := oneEvent()
	agenda.Window = domain.AbsoluteInterval{
		From: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
	}
	sender := &fakeSender{}

	s, err := New("0 7 * * *", time.UTC, &fakeSource{agenda: agenda}, render.MustParse("{summary}"), &buf, zerolog.Nop())
	require.NoError(t, err)
	s.SetSender(sender)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, "Dentist\n", buf.String())
	assert.Equal(t, []string{"Events 11 Mar 2024 - 25 Mar 2024 (UTC)\n\nDentist"}, sender.texts)
}

func TestRunOnce_NoEventsIsStillSent(t *testing.T) {
	sender := &fakeSender{}
	s, err := New("0 7 * * *", time.UTC, &fakeSource{}, render.MustParse("{summary}"), nil, zerolog.Nop())
	require.NoError(t, err)
	s.SetSender(sender)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{render.NoEvents}, sender.texts)
}

func TestRunOnce_Errors(t *testing.T) {
	boom := errors.New("boom")

	s, err := New("0 7 * * *", time.UTC, &fakeSource{err: boom}, render.MustParse("{summary}"), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.ErrorIs(t, s.RunOnce(context.Background()), boom)

	s, err = New("0 7 * * *", time.UTC, &fakeSource{agenda: oneEvent()}, render.MustParse("{summary}"), nil, zerolog.Nop())
	require.NoError(t, err)
	s.SetSender(&fakeSender{err: boom})
	assert.ErrorIs(t, s.RunOnce(context.Background()), boom)
}

func TestStart_RunsOnSchedule(t *testing.T) {
	src := &fakeSource{agenda: oneEvent()}
	s, err := New("@every 1s", time.UTC, src, render.MustParse("{summary}"), nil, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return src.Calls() > 0 }, 5*time.Second, 50*time.Millisecond)
	assert.False(t, s.Next().IsZero())

	cancel()
	require.NoError(t, <-done)
	s.Stop()
}
