package service

import (
	"context"
	"fmt"

	"github.com/nhle/mail-assistant/internal/directory"
	"github.com/nhle/mail-assistant/internal/model"
)

// OutcomeStatus is what poll-once did with one message.
type OutcomeStatus string

const (
	StatusDrafted OutcomeStatus = "drafted"
	StatusSent    OutcomeStatus = "sent"
	StatusSkipped OutcomeStatus = "skipped"
	StatusFailed  OutcomeStatus = "failed"
)

// Outcome records the result of processing one message.
type Outcome struct {
	EmailID string        `json:"emailId"`
	Subject string        `json:"subject"`
	Status  OutcomeStatus `json:"status"`
	Error   string        `json:"error,omitempty"`
}

// PollResult summarises a poll-once run.
type PollResult struct {
	// NewEmails is the number of messages in the fetched snapshot.
	NewEmails   int       `json:"newEmails"`
	AutoReplied int       `json:"autoReplied"`
	Generation  uint64    `json:"generation"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Failed returns the number of messages that could not be processed.
func (r PollResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// PollOnce fetches the mailbox and, when auto-reply is enabled, drafts a
// reply for every message that has neither a draft nor a reply. Messages
// the model classifies as basic are answered immediately.
//
// Only a failed fetch is returned as an error. A failure on one message
// is recorded in its Outcome and the remaining messages are still
// processed.
func (a *Assistant) PollOnce(ctx context.Context) (PollResult, error) {
	settings := a.settings.Current()
	ad := a.adapters(settings)

	snap, err := a.fetch(ctx, ad)
	if err != nil {
		return PollResult{}, err
	}

	result := PollResult{
		NewEmails:  snap.Len(),
		Generation: snap.Generation,
		Outcomes:   []Outcome{},
	}

	if settings.AutoReplyEnabled {
		a.autoReply(ctx, ad, snap, &result)
	}

	act := model.Activity{
		Kind:       model.ActivityPoll,
		Outcome:    model.OutcomeOK,
		Generation: snap.Generation,
		Detail: fmt.Sprintf("%d emails, %d auto-replied, %d failed",
			result.NewEmails, result.AutoReplied, result.Failed()),
	}
	if result.Failed() > 0 {
		act.Outcome = model.OutcomeFailed
	}
	a.record(ctx, act)

	a.log.Info("poll complete",
		"generation", result.Generation,
		"emails", result.NewEmails,
		"autoReplied", result.AutoReplied,
		"failed", result.Failed(),
	)
	return result, nil
}

func (a *Assistant) autoReply(ctx context.Context, ad Adapters, snap *directory.Snapshot, result *PollResult) {
	for _, msg := range snap.Messages() {
		out := Outcome{EmailID: msg.ID, Subject: msg.Subject}

		if msg.HasDraft() || msg.Replied {
			out.Status = StatusSkipped
			result.Outcomes = append(result.Outcomes, out)
			continue
		}

		if err := ctx.Err(); err != nil {
			out.Status = StatusFailed
			out.Error = err.Error()
			result.Outcomes = append(result.Outcomes, out)
			continue
		}

		drafted, err := a.draft(ctx, ad, msg, snap.Generation)
		if err != nil {
			a.log.Warn("auto-reply draft failed", "email", msg.ID, "error", err)
			out.Status = StatusFailed
			out.Error = err.Error()
			result.Outcomes = append(result.Outcomes, out)
			continue
		}

		out.Status = StatusDrafted
		if ad.Drafter.IsBasic(ctx, drafted) {
			if _, err := a.send(ctx, ad, drafted, snap.Generation); err != nil {
				a.log.Warn("auto-reply send failed", "email", msg.ID, "error", err)
				out.Status = StatusFailed
				out.Error = err.Error()
			} else {
				out.Status = StatusSent
				result.AutoReplied++
			}
		}

		result.Outcomes = append(result.Outcomes, out)
	}
}
