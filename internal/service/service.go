// Package service implements the assistant's operations: fetching the
// mailbox, drafting and sending replies, and the poll-once auto-reply
// pass. HTTP handlers, the CLI and the background poller all call into
// an Assistant.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/mail-assistant/internal/directory"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
)

// Reader lists the mailbox and flags answered messages.
type Reader interface {
	FetchRecent(ctx context.Context) ([]model.Message, error)
	MarkAnswered(ctx context.Context, uid uint32) error
}

// Drafter generates reply drafts and decides whether a message can be
// answered unattended.
type Drafter interface {
	DraftReply(ctx context.Context, msg model.Message) (string, error)
	IsBasic(ctx context.Context, msg model.Message) bool
}

// Sender delivers a message's draft as a reply.
type Sender interface {
	SendReply(ctx context.Context, msg model.Message) error
}

// Adapters bundles the external connections for one Settings value.
type Adapters struct {
	Reader  Reader
	Drafter Drafter
	Sender  Sender
}

// AdapterFactory builds adapters from the current settings. It is called
// once per operation so a saved configuration takes effect immediately.
type AdapterFactory func(model.Settings) Adapters

// SettingsSource provides the settings currently in effect.
type SettingsSource interface {
	Current() model.Settings
}

// ActivityRecorder persists activity records.
type ActivityRecorder interface {
	Record(ctx context.Context, a model.Activity) error
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRecorder sets where activity records are written.
func WithRecorder(r ActivityRecorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// WithMarkAnswered controls whether sent replies flag the original
// message \Answered on the server.
func WithMarkAnswered(enabled bool) Option {
	return func(a *Assistant) { a.markAnswered = enabled }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assistant) { a.log = l }
}

// Assistant ties the mailbox, the language model and the message
// directory together.
type Assistant struct {
	settings     SettingsSource
	adapters     AdapterFactory
	dir          *directory.Directory
	recorder     ActivityRecorder
	markAnswered bool
	log          logger.Logger
	now          func() time.Time
}

// New creates an Assistant. dir is the shared message directory.
func New(
	settings SettingsSource,
	adapters AdapterFactory,
	dir *directory.Directory,
	opts ...Option,
) *Assistant {
	a := &Assistant{
		settings:     settings,
		adapters:     adapters,
		dir:          dir,
		markAnswered: true,
		log:          logger.Nop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "service")
	return a
}

// Directory returns the message directory the assistant writes to.
func (a *Assistant) Directory() *directory.Directory {
	return a.dir
}

// Fetch reads the newest messages and replaces the directory snapshot.
func (a *Assistant) Fetch(ctx context.Context) (*directory.Snapshot, error) {
	return a.fetch(ctx, a.adapters(a.settings.Current()))
}

func (a *Assistant) fetch(ctx context.Context, ad Adapters) (*directory.Snapshot, error) {
	msgs, err := ad.Reader.FetchRecent(ctx)
	if err != nil {
		a.record(ctx, model.Activity{
			Kind:    model.ActivityFetch,
			Outcome: model.OutcomeFailed,
			Detail:  err.Error(),
		})
		return nil, fmt.Errorf("fetching emails: %w", err)
	}

	snap := a.dir.Replace(msgs)
	a.record(ctx, model.Activity{
		Kind:       model.ActivityFetch,
		Outcome:    model.OutcomeOK,
		Detail:     fmt.Sprintf("%d messages", snap.Len()),
		Generation: snap.Generation,
	})
	return snap, nil
}

// Resolve looks up a message by id, fetching first when the directory is
// empty. A non-zero generation must match the current snapshot.
func (a *Assistant) Resolve(ctx context.Context, id string, generation uint64) (model.Message, uint64, error) {
	if a.dir.Current().Len() == 0 {
		if _, err := a.Fetch(ctx); err != nil {
			return model.Message{}, 0, err
		}
	}
	return a.dir.Lookup(id, generation)
}

// GenerateDraft drafts a reply for the message and stores it in the
// directory. The updated message is returned.
func (a *Assistant) GenerateDraft(ctx context.Context, id string, generation uint64) (model.Message, error) {
	msg, gen, err := a.Resolve(ctx, id, generation)
	if err != nil {
		return model.Message{}, err
	}

	ad := a.adapters(a.settings.Current())
	return a.draft(ctx, ad, msg, gen)
}

func (a *Assistant) draft(ctx context.Context, ad Adapters, msg model.Message, gen uint64) (model.Message, error) {
	text, err := ad.Drafter.DraftReply(ctx, msg)
	if err != nil {
		a.recordMessage(ctx, model.ActivityDraft, msg, gen, err)
		return model.Message{}, err
	}

	updated, err := a.dir.Update(gen, msg.ID, func(m *model.Message) {
		m.Draft = text
	})
	if err != nil {
		a.recordMessage(ctx, model.ActivityDraft, msg, gen, err)
		return model.Message{}, err
	}

	a.recordMessage(ctx, model.ActivityDraft, updated, gen, nil)
	return updated, nil
}

// SendReply sends the message's draft and marks it replied. The sender
// is not contacted when there is no draft.
func (a *Assistant) SendReply(ctx context.Context, id string, generation uint64) (model.Message, error) {
	msg, gen, err := a.Resolve(ctx, id, generation)
	if err != nil {
		return model.Message{}, err
	}
	if !msg.HasDraft() {
		return model.Message{}, fmt.Errorf("email %s: %w", id, model.ErrNoDraft)
	}

	ad := a.adapters(a.settings.Current())
	return a.send(ctx, ad, msg, gen)
}

func (a *Assistant) send(ctx context.Context, ad Adapters, msg model.Message, gen uint64) (model.Message, error) {
	if err := ad.Sender.SendReply(ctx, msg); err != nil {
		a.recordMessage(ctx, model.ActivityReply, msg, gen, err)
		return model.Message{}, fmt.Errorf("sending reply: %w", err)
	}

	msg.Replied = true
	a.recordMessage(ctx, model.ActivityReply, msg, gen, nil)

	updated, err := a.dir.Update(gen, msg.ID, func(m *model.Message) {
		m.Replied = true
	})
	if err != nil {
		// The mail is already out; only the in-memory flag is lost.
		a.log.Warn("reply sent but directory changed; replied flag not stored",
			"email", msg.ID, "error", err)
		updated = msg
	}

	a.flagAnswered(ctx, ad, msg)
	return updated, nil
}

// flagAnswered sets \Answered on the original so later fetches see it as
// replied. Failures are logged only.
func (a *Assistant) flagAnswered(ctx context.Context, ad Adapters, msg model.Message) {
	if !a.markAnswered || msg.UID == 0 {
		return
	}
	if err := ad.Reader.MarkAnswered(ctx, msg.UID); err != nil {
		a.log.Warn("could not flag message answered", "email", msg.ID, "uid", msg.UID, "error", err)
	}
}

func (a *Assistant) recordMessage(
	ctx context.Context, kind model.ActivityKind, msg model.Message, gen uint64, err error,
) {
	act := model.Activity{
		Kind:       kind,
		EmailID:    msg.ID,
		Subject:    msg.Subject,
		Outcome:    model.OutcomeOK,
		Generation: gen,
	}
	if kind == model.ActivityReply {
		act.Recipient = msg.SenderAddress()
	}
	if err != nil {
		act.Outcome = model.OutcomeFailed
		act.Detail = err.Error()
	}
	a.record(ctx, act)
}

// record writes an activity entry. Recording never fails the operation.
func (a *Assistant) record(ctx context.Context, act model.Activity) {
	if a.recorder == nil {
		return
	}
	if act.CreatedAt.IsZero() {
		act.CreatedAt = a.now().UTC()
	}
	if err := a.recorder.Record(ctx, act); err != nil {
		a.log.Warn("failed to record activity", "kind", act.Kind, "error", err)
	}
}
