// Package campaign runs one batch of outreach emails.
//
// A run loads the status store, fetches the recipient list, and for every
// recipient not yet marked sent drafts an email, delivers it with the CV
// attached and records the outcome. The status file is rewritten after each
// recorded outcome, so an interrupted run keeps everything it already did.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xrsl/reachout/pkg/compose"
	clog "github.com/xrsl/reachout/pkg/log"
	"github.com/xrsl/reachout/pkg/mail"
	"github.com/xrsl/reachout/pkg/recipient"
	"github.com/xrsl/reachout/pkg/retry"
	"github.com/xrsl/reachout/pkg/status"
)

// Source provides the recipient list for a run.
type Source interface {
	Recipients(ctx context.Context) ([]recipient.Recipient, error)
}

// Composer drafts the email for one recipient.
type Composer interface {
	Compose(ctx context.Context, r recipient.Recipient) (compose.Draft, error)
}

// Options tune a run.
type Options struct {
	// MaxPerRun caps delivery attempts per run; 0 means no cap.
	MaxPerRun int
	// SendInterval is the minimum gap between two deliveries.
	SendInterval time.Duration
	// DryRun drafts emails and writes them to Out without sending or recording.
	DryRun bool
	Out    io.Writer

	From       string
	FromName   string
	ReplyTo    string
	Attachment mail.Attachment

	// RunID tags log lines and status entries; generated when empty.
	RunID string
}

// Summary describes what a run did.
type Summary struct {
	RunID       string
	Recipients  int // rows returned by the source
	AlreadySent int
	Sent        int
	Failed      int
	Skipped     int
	Drafted     int // dry-run only
	Remaining   int // pending recipients left for a later run
	Interrupted bool
}

// Attempted is the number of delivery attempts made.
func (s Summary) Attempted() int {
	return s.Sent + s.Failed
}

// Runner executes runs against one status store.
type Runner struct {
	source   Source
	composer Composer
	sender   mail.Sender
	store    *status.Store
	opts     Options
	pacer    *retry.RateLimiter
	log      *slog.Logger
}

// New creates a Runner.
func New(source Source, composer Composer, sender mail.Sender, store *status.Store, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{
		source:   source,
		composer: composer,
		sender:   sender,
		store:    store,
		opts:     opts,
		pacer:    retry.NewIntervalLimiter(opts.SendInterval),
		log:      clog.With("run_id", opts.RunID),
	}
}

// invalid is a recipient that cannot be mailed and why.
type invalid struct {
	r   recipient.Recipient
	err error
}

// plan splits the sheet into recipients to attempt now and the rest.
type plan struct {
	pending []recipient.Recipient
	invalid []invalid
	sent    int
}

func (r *Runner) plan(recipients []recipient.Recipient) plan {
	var p plan
	seen := make(map[string]bool, len(recipients))
	for _, rec := range recipients {
		key := rec.Key()
		if key == "" {
			r.log.Warn("row has no email address, ignoring", "row", rec.Row, "name", rec.Name)
			continue
		}
		if seen[key] {
			r.log.Debug("duplicate recipient in sheet, ignoring", "row", rec.Row, "email", key)
			continue
		}
		seen[key] = true

		if r.store.IsSent(key) {
			p.sent++
			continue
		}
		if err := rec.Validate(); err != nil {
			p.invalid = append(p.invalid, invalid{r: rec, err: err})
			continue
		}
		p.pending = append(p.pending, rec)
	}
	return p
}

// Run executes one batch. It returns an error only for conditions that make
// the whole run fail: unreadable recipients, rejected mail credentials,
// status persistence failures, or cancellation.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: r.opts.RunID}

	recipients, err := r.source.Recipients(ctx)
	if err != nil {
		return sum, fmt.Errorf("fetch recipients: %w", err)
	}
	sum.Recipients = len(recipients)
	if len(recipients) == 0 {
		r.log.Info("no recipients found, nothing to do")
		return sum, nil
	}

	p := r.plan(recipients)
	sum.AlreadySent = p.sent

	if err := r.recordInvalid(p.invalid, &sum); err != nil {
		return sum, err
	}

	batch := p.pending
	if r.opts.MaxPerRun > 0 && len(batch) > r.opts.MaxPerRun {
		batch = batch[:r.opts.MaxPerRun]
	}
	sum.Remaining = len(p.pending) - len(batch)

	if len(batch) == 0 {
		r.log.Info("every recipient already handled", "already_sent", sum.AlreadySent, "skipped", sum.Skipped)
		return sum, nil
	}

	if !r.opts.DryRun {
		if err := r.sender.Verify(ctx); err != nil {
			return sum, fmt.Errorf("verify mail transport: %w", err)
		}
	}

	r.log.Info("starting run",
		"recipients", sum.Recipients,
		"already_sent", sum.AlreadySent,
		"batch", len(batch),
		"deferred", sum.Remaining,
		"dry_run", r.opts.DryRun,
	)

	for i, rec := range batch {
		if err := r.wait(ctx); err != nil {
			sum.Remaining += len(batch) - i
			sum.Interrupted = true
			return sum, err
		}

		if err := r.attempt(ctx, rec, &sum); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				sum.Remaining += len(batch) - i
				sum.Interrupted = true
			} else {
				sum.Remaining += len(batch) - i - 1
			}
			return sum, err
		}
	}

	r.log.Info("run finished",
		"sent", sum.Sent,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"remaining", sum.Remaining,
	)
	return sum, nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.opts.DryRun {
		return ctx.Err()
	}
	if err := r.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

// recordInvalid marks unmailable rows as skipped. An unchanged skip is not
// rewritten, so a sheet with a permanently bad row does not churn the file.
func (r *Runner) recordInvalid(rows []invalid, sum *Summary) error {
	for _, inv := range rows {
		sum.Skipped++
		r.log.Warn("skipping recipient", "row", inv.r.Row, "email", inv.r.Email, "reason", inv.err)
		if r.opts.DryRun {
			continue
		}
		if prev, ok := r.store.Get(inv.r.Key()); ok && prev.State == status.Skipped && prev.Error == inv.err.Error() {
			continue
		}
		if _, err := r.store.Record(inv.r, status.Skipped, inv.err, r.opts.RunID); err != nil {
			return fmt.Errorf("record %s: %w", inv.r.Email, err)
		}
	}
	if r.opts.DryRun {
		return nil
	}
	return r.persist()
}

// attempt drafts and delivers one email. Only fatal errors are returned.
func (r *Runner) attempt(ctx context.Context, rec recipient.Recipient, sum *Summary) error {
	log := r.log.With("email", rec.Key(), "row", rec.Row)

	draft, err := r.composer.Compose(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("could not draft email", "error", err)
		return r.record(rec, status.Failed, fmt.Errorf("compose: %w", err), sum)
	}

	if r.opts.DryRun {
		sum.Drafted++
		fmt.Fprintf(r.opts.Out, "To: %s\nSubject: %s\n\n%s\n\n---\n", rec, draft.Subject, draft.Body)
		return nil
	}

	email := &mail.Email{
		From:     r.opts.From,
		FromName: r.opts.FromName,
		ReplyTo:  r.opts.ReplyTo,
		To:       rec.Email,
		ToName:   rec.Name,
		Subject:  draft.Subject,
		Text:     draft.Body,
	}
	if len(r.opts.Attachment.Content) > 0 {
		email.Attachments = []mail.Attachment{r.opts.Attachment}
	}

	err = r.sender.Send(ctx, email)
	switch {
	case err == nil:
		log.Info("email sent", "subject", draft.Subject)
		return r.record(rec, status.Sent, nil, sum)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, mail.ErrAuth):
		log.Error("mail transport rejected credentials, aborting run", "error", err)
		if recErr := r.record(rec, status.Failed, err, sum); recErr != nil {
			return errors.Join(err, recErr)
		}
		return err
	default:
		log.Warn("send failed", "error", err)
		return r.record(rec, status.Failed, err, sum)
	}
}

// record stores an outcome and persists it immediately.
func (r *Runner) record(rec recipient.Recipient, state status.State, cause error, sum *Summary) error {
	if _, err := r.store.Record(rec, state, cause, r.opts.RunID); err != nil {
		return fmt.Errorf("record %s: %w", rec.Email, err)
	}
	switch state {
	case status.Sent:
		sum.Sent++
	case status.Failed:
		sum.Failed++
	}
	return r.persist()
}

func (r *Runner) persist() error {
	if err := r.store.Save(); err != nil {
		return fmt.Errorf("save %s: %w", r.store.Path(), err)
	}
	return nil
}
