package resend

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrsl/reachout/pkg/mail"
)

type fakeEmails struct {
	got *resend.SendEmailRequest
	err error
}

func (f *fakeEmails) SendWithContext(_ context.Context, req *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "msg_123"}, nil
}

func newTestSender(f *fakeEmails) *Sender {
	s := New(Config{APIKey: "re_test", FromEmail: "me@example.com", FromName: "Grace Hopper"})
	s.emails = f
	return s
}

func TestSendConvertsRequest(t *testing.T) {
	f := &fakeEmails{}
	s := newTestSender(f)

	err := s.Send(context.Background(), &mail.Email{
		To:      "ada@uni.edu",
		ToName:  "Ada Lovelace",
		Subject: "Research internship",
		Text:    "Hello",
		Attachments: []mail.Attachment{
			{Filename: "CV.pdf", ContentType: "application/pdf", Content: []byte("pdf")},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, f.got)
	assert.Equal(t, "Grace Hopper <me@example.com>", f.got.From)
	assert.Equal(t, []string{"Ada Lovelace <ada@uni.edu>"}, f.got.To)
	assert.Equal(t, "Research internship", f.got.Subject)
	assert.Equal(t, "Hello", f.got.Text)
	require.Len(t, f.got.Attachments, 1)
	assert.Equal(t, "CV.pdf", f.got.Attachments[0].Filename)
	assert.Equal(t, []byte("pdf"), f.got.Attachments[0].Content)
}

func TestSendClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unauthorized", err: errors.New("[ERROR]: API key is invalid (401)"), want: mail.ErrAuth},
		{name: "validation", err: errors.New("[ERROR]: invalid `to` field (422)"), want: mail.ErrSendFailed},
		{name: "cancelled", err: context.Canceled, want: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSender(&fakeEmails{err: tt.err})
			err := s.Send(context.Background(), &mail.Email{To: "a@b.c", Subject: "s", Text: "t"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerify(t *testing.T) {
	assert.NoError(t, newTestSender(&fakeEmails{}).Verify(context.Background()))

	s := New(Config{FromEmail: "me@example.com"})
	assert.ErrorIs(t, s.Verify(context.Background()), mail.ErrAuth)
}
