package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/internal/source"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPoller_RunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int32
	poll := func(context.Context) (service.PollResult, error) {
		calls.Add(1)
		return service.PollResult{NewEmails: 4, AutoReplied: 1}, nil
	}

	p := New(poll, 20*time.Millisecond, logger.Nop())
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return calls.Load() >= 3 })

	st := p.Status()
	if st.Runs < 3 || st.LastRun.IsZero() {
		t.Errorf("status = %+v", st)
	}
	if st.Last == nil || st.Last.NewEmails != 4 {
		t.Errorf("Last = %+v", st.Last)
	}
}

func TestPoller_RecordsErrors(t *testing.T) {
	poll := func(context.Context) (service.PollResult, error) {
		return service.PollResult{}, &source.AuthError{Kind: source.KindIMAP, Message: "bad password"}
	}

	p := New(poll, time.Hour, logger.Nop())
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return p.Status().Runs == 1 })

	st := p.Status()
	if st.State != SyncError || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestPoller_Refresh(t *testing.T) {
	var calls atomic.Int32
	poll := func(context.Context) (service.PollResult, error) {
		calls.Add(1)
		return service.PollResult{}, nil
	}

	p := New(poll, time.Hour, logger.Nop())
	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return calls.Load() == 1 })
	p.Refresh()
	waitFor(t, func() bool { return calls.Load() == 2 })
}

func TestPoller_Stop(t *testing.T) {
	poll := func(context.Context) (service.PollResult, error) {
		return service.PollResult{}, errors.New("unreachable")
	}

	p := New(poll, 10*time.Millisecond, logger.Nop())
	p.Start(context.Background())
	waitFor(t, func() bool { return p.Status().Runs >= 1 })

	p.Stop()
	runs := p.Status().Runs
	time.Sleep(50 * time.Millisecond)

	st := p.Status()
	if st.State != SyncStopped {
		t.Errorf("State = %s, want stopped", st.State)
	}
	if st.Runs != runs {
		t.Errorf("poller ran after Stop: %d -> %d", runs, st.Runs)
	}

	// Stop is idempotent.
	p.Stop()
}

func TestPoller_DisabledInterval(t *testing.T) {
	called := false
	poll := func(context.Context) (service.PollResult, error) {
		called = true
		return service.PollResult{}, nil
	}

	p := New(poll, 0, logger.Nop())
	p.Start(context.Background())
	p.Stop()

	if called || p.Status().State != SyncStopped {
		t.Errorf("disabled poller ran: called=%v status=%+v", called, p.Status())
	}
}

func TestPoller_RefreshWhileStopped(t *testing.T) {
	var calls atomic.Int32
	poll := func(context.Context) (service.PollResult, error) {
		calls.Add(1)
		return service.PollResult{}, nil
	}

	p := New(poll, time.Hour, logger.Nop())
	p.Refresh()

	p.Start(context.Background())
	defer p.Stop()

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("poll ran %d times, want only the initial pass", got)
	}
}
