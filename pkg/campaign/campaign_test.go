package campaign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrsl/reachout/pkg/compose"
	"github.com/xrsl/reachout/pkg/mail"
	"github.com/xrsl/reachout/pkg/recipient"
	"github.com/xrsl/reachout/pkg/status"
)

type fakeSource struct {
	recipients []recipient.Recipient
	err        error
}

func (f *fakeSource) Recipients(context.Context) ([]recipient.Recipient, error) {
	return f.recipients, f.err
}

type fakeComposer struct {
	failFor map[string]error
	calls   []string
}

func (f *fakeComposer) Compose(_ context.Context, r recipient.Recipient) (compose.Draft, error) {
	f.calls = append(f.calls, r.Key())
	if err := f.failFor[r.Key()]; err != nil {
		return compose.Draft{}, err
	}
	return compose.Draft{Subject: "Internship with " + r.Name, Body: "Dear " + r.Name}, nil
}

type fakeSender struct {
	verifyErr error
	failFor   map[string]error
	onSend    func(*mail.Email)
	verified  int
	sent      []*mail.Email
	tried     []string
}

func (f *fakeSender) Verify(context.Context) error {
	f.verified++
	return f.verifyErr
}

func (f *fakeSender) Send(_ context.Context, e *mail.Email) error {
	f.tried = append(f.tried, e.To)
	if f.onSend != nil {
		f.onSend(e)
	}
	if err := f.failFor[e.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, e)
	return nil
}

func people(n int) []recipient.Recipient {
	out := make([]recipient.Recipient, n)
	for i := range out {
		out[i] = recipient.Recipient{
			Name:           fmt.Sprintf("Prof %d", i+1),
			ResearchDomain: "Systems",
			Email:          fmt.Sprintf("prof%d@uni.edu", i+1),
			Organization:   "Uni",
			Row:            i + 2,
		}
	}
	return out
}

func statusPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data", "email_status.json")
}

func loadStore(t *testing.T, path string) *status.Store {
	t.Helper()
	s, err := status.Load(path)
	require.NoError(t, err)
	return s
}

var cv = mail.Attachment{Filename: "CV.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}

func runOnce(t *testing.T, path string, src Source, comp Composer, snd mail.Sender, opts Options) (Summary, error) {
	t.Helper()
	if opts.Attachment.Content == nil {
		opts.Attachment = cv
	}
	return New(src, comp, snd, loadStore(t, path), opts).Run(context.Background())
}

func TestRunSendsAndRecords(t *testing.T) {
	path := statusPath(t)
	snd := &fakeSender{}

	sum, err := runOnce(t, path, &fakeSource{recipients: people(3)}, &fakeComposer{}, snd, Options{RunID: "run-1", From: "me@gmail.com"})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 0, sum.Failed)
	assert.Equal(t, 1, snd.verified)
	require.Len(t, snd.sent, 3)

	first := snd.sent[0]
	assert.Equal(t, "prof1@uni.edu", first.To)
	assert.Equal(t, "Prof 1", first.ToName)
	assert.Equal(t, "me@gmail.com", first.From)
	assert.Equal(t, "Internship with Prof 1", first.Subject)
	require.Len(t, first.Attachments, 1)
	assert.Equal(t, "CV.pdf", first.Attachments[0].Filename)

	store := loadStore(t, path)
	assert.Equal(t, 3, store.Len())
	for _, e := range store.Entries() {
		assert.Equal(t, status.Sent, e.State)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, 1, e.Attempts)
	}
}

func TestRunNeverResendsSentRecipients(t *testing.T) {
	path := statusPath(t)
	src := &fakeSource{recipients: people(3)}

	_, err := runOnce(t, path, src, &fakeComposer{}, &fakeSender{}, Options{})
	require.NoError(t, err)

	comp := &fakeComposer{}
	snd := &fakeSender{}
	sum, err := runOnce(t, path, src, comp, snd, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.AlreadySent)
	assert.Zero(t, sum.Attempted())
	assert.Empty(t, snd.tried)
	assert.Empty(t, comp.calls, "no drafts should be generated for sent recipients")
	assert.Zero(t, snd.verified, "nothing to send, so no connection is needed")
}

func TestRunContinuesAfterFailure(t *testing.T) {
	path := statusPath(t)
	snd := &fakeSender{failFor: map[string]error{
		"prof2@uni.edu": fmt.Errorf("%w: 550 mailbox unavailable", mail.ErrSendFailed),
	}}
	comp := &fakeComposer{failFor: map[string]error{
		"prof4@uni.edu": errors.New("model returned garbage"),
	}}

	sum, err := runOnce(t, path, &fakeSource{recipients: people(5)}, comp, snd, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Sent)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, []string{"prof1@uni.edu", "prof2@uni.edu", "prof3@uni.edu", "prof5@uni.edu"}, snd.tried)

	store := loadStore(t, path)
	e, ok := store.Get("prof2@uni.edu")
	require.True(t, ok)
	assert.Equal(t, status.Failed, e.State)
	assert.Contains(t, e.Error, "550 mailbox unavailable")

	e, ok = store.Get("prof4@uni.edu")
	require.True(t, ok)
	assert.Equal(t, status.Failed, e.State)
	assert.Contains(t, e.Error, "compose")
}

func TestRunRetriesFailedOnNextRun(t *testing.T) {
	path := statusPath(t)
	src := &fakeSource{recipients: people(2)}

	_, err := runOnce(t, path, src, &fakeComposer{}, &fakeSender{failFor: map[string]error{
		"prof1@uni.edu": mail.ErrSendFailed,
	}}, Options{RunID: "run-1"})
	require.NoError(t, err)

	snd := &fakeSender{}
	sum, err := runOnce(t, path, src, &fakeComposer{}, snd, Options{RunID: "run-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.AlreadySent)
	assert.Equal(t, []string{"prof1@uni.edu"}, snd.tried)

	store := loadStore(t, path)
	assert.Equal(t, 2, store.Len(), "exactly one entry per recipient")
	e, _ := store.Get("prof1@uni.edu")
	assert.Equal(t, status.Sent, e.State)
	assert.Equal(t, 2, e.Attempts)
	assert.Equal(t, "run-2", e.RunID)
	assert.Empty(t, e.Error)
}

func TestRunEmptyRecipientListLeavesStatusUntouched(t *testing.T) {
	path := statusPath(t)
	_, err := runOnce(t, path, &fakeSource{recipients: people(1)}, &fakeComposer{}, &fakeSender{}, Options{})
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	infoBefore, err := os.Stat(path)
	require.NoError(t, err)

	snd := &fakeSender{}
	sum, err := runOnce(t, path, &fakeSource{}, &fakeComposer{}, snd, Options{})
	require.NoError(t, err)
	assert.Zero(t, sum.Recipients)
	assert.Zero(t, snd.verified)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	infoAfter, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, infoBefore.ModTime(), infoAfter.ModTime())
}

func TestRunEmptyListWithoutStatusFile(t *testing.T) {
	path := statusPath(t)
	_, err := runOnce(t, path, &fakeSource{}, &fakeComposer{}, &fakeSender{}, Options{})
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunRespectsMaxPerRun(t *testing.T) {
	path := statusPath(t)
	src := &fakeSource{recipients: people(5)}

	snd := &fakeSender{}
	sum, err := runOnce(t, path, src, &fakeComposer{}, snd, Options{MaxPerRun: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sent)
	assert.Equal(t, 3, sum.Remaining)
	assert.Equal(t, []string{"prof1@uni.edu", "prof2@uni.edu"}, snd.tried)

	snd = &fakeSender{}
	sum, err = runOnce(t, path, src, &fakeComposer{}, snd, Options{MaxPerRun: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"prof3@uni.edu", "prof4@uni.edu"}, snd.tried)
	assert.Equal(t, 1, sum.Remaining)
}

func TestRunVerifyFailureAbortsBeforeSending(t *testing.T) {
	path := statusPath(t)
	snd := &fakeSender{verifyErr: fmt.Errorf("%w: 535 bad credentials", mail.ErrAuth)}
	comp := &fakeComposer{}

	_, err := runOnce(t, path, &fakeSource{recipients: people(2)}, comp, snd, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, mail.ErrAuth)
	assert.Empty(t, snd.tried)
	assert.Empty(t, comp.calls)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no status should be written")
}

func TestRunAuthErrorDuringSendAborts(t *testing.T) {
	path := statusPath(t)
	snd := &fakeSender{failFor: map[string]error{
		"prof2@uni.edu": fmt.Errorf("%w: session expired", mail.ErrAuth),
	}}

	sum, err := runOnce(t, path, &fakeSource{recipients: people(4)}, &fakeComposer{}, snd, Options{})
	require.ErrorIs(t, err, mail.ErrAuth)
	assert.Equal(t, []string{"prof1@uni.edu", "prof2@uni.edu"}, snd.tried)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 2, sum.Remaining)

	store := loadStore(t, path)
	assert.True(t, store.IsSent("prof1@uni.edu"))
	e, _ := store.Get("prof2@uni.edu")
	assert.Equal(t, status.Failed, e.State)
	_, ok := store.Get("prof3@uni.edu")
	assert.False(t, ok)
}

func TestRunSourceErrorIsFatal(t *testing.T) {
	snd := &fakeSender{}
	_, err := runOnce(t, statusPath(t), &fakeSource{err: errors.New("403 caller does not have permission")}, &fakeComposer{}, snd, Options{})
	require.ErrorContains(t, err, "fetch recipients")
	assert.Zero(t, snd.verified)
}

func TestRunSkipsInvalidAndDuplicateRows(t *testing.T) {
	path := statusPath(t)
	rows := people(2)
	rows = append(rows,
		recipient.Recipient{Name: "No Email", Row: 10},
		recipient.Recipient{Name: "Broken", Email: "broken@", Row: 11},
		recipient.Recipient{Name: "Prof 1 again", Email: "PROF1@uni.edu", Row: 12},
	)
	snd := &fakeSender{}

	sum, err := runOnce(t, path, &fakeSource{recipients: rows}, &fakeComposer{}, snd, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sent)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, []string{"prof1@uni.edu", "prof2@uni.edu"}, snd.tried)

	store := loadStore(t, path)
	assert.Equal(t, 3, store.Len())
	e, ok := store.Get("broken@")
	require.True(t, ok)
	assert.Equal(t, status.Skipped, e.State)
	assert.Contains(t, e.Error, "invalid email")

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = runOnce(t, path, &fakeSource{recipients: rows}, &fakeComposer{}, &fakeSender{}, Options{})
	require.NoError(t, err)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "an unchanged skip must not rewrite the file")
}

func TestRunDryRun(t *testing.T) {
	path := statusPath(t)
	var out bytes.Buffer
	snd := &fakeSender{}

	sum, err := runOnce(t, path, &fakeSource{recipients: people(2)}, &fakeComposer{}, snd, Options{DryRun: true, Out: &out})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Drafted)
	assert.Zero(t, sum.Attempted())
	assert.Empty(t, snd.tried)
	assert.Zero(t, snd.verified)
	assert.Contains(t, out.String(), "Subject: Internship with Prof 2")

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunPersistErrorIsFatal(t *testing.T) {
	path := statusPath(t)
	store := loadStore(t, path)
	// A directory in place of the status file makes every save fail.
	require.NoError(t, os.MkdirAll(path, 0o755))

	snd := &fakeSender{}
	r := New(&fakeSource{recipients: people(3)}, &fakeComposer{}, snd, store, Options{Attachment: cv})
	sum, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrPersist)
	assert.Equal(t, 1, sum.Sent, "the run stops at the first failed write")
	assert.Len(t, snd.tried, 1)
	assert.Equal(t, 2, sum.Remaining)
}

func TestRunCancelledMidRunKeepsRecordedOutcomes(t *testing.T) {
	path := statusPath(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snd := &fakeSender{}
	snd.onSend = func(e *mail.Email) {
		if e.To == "prof1@uni.edu" {
			cancel()
		}
	}

	r := New(&fakeSource{recipients: people(3)}, &fakeComposer{}, snd, loadStore(t, path), Options{Attachment: cv})
	sum, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, sum.Interrupted)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 2, sum.Remaining)

	store := loadStore(t, path)
	assert.True(t, store.IsSent("prof1@uni.edu"))
	assert.Equal(t, 1, store.Len())
}
