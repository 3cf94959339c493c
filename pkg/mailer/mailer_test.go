package mailer

import (
	"context"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/pkg/config"
)

type fakeClient struct {
	sent   *sgmail.SGMailV3
	status int
}

func (f *fakeClient) SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	f.sent = email
	return &rest.Response{StatusCode: f.status, Headers: map[string][]string{"X-Message-Id": {"msg-1"}}}, nil
}

func TestSendGridSenderBuildsMail(t *testing.T) {
	client := &fakeClient{status: http.StatusAccepted}
	sender := &SendGridSender{client: client, from: sgmail.NewEmail("School", "no-reply@school.test"), subjPrefix: "[School] "}

	id, err := sender.Send(context.Background(), Message{ToName: "Budi", ToEmail: "budi@example.com", Subject: "Exam", Text: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, client.sent.Personalizations, 1)
	assert.Equal(t, "[School] Exam", client.sent.Personalizations[0].Subject)
	assert.Equal(t, "budi@example.com", client.sent.Personalizations[0].To[0].Address)
}

func TestSendGridSenderRejectsErrorStatus(t *testing.T) {
	sender := &SendGridSender{client: &fakeClient{status: http.StatusUnauthorized}, from: sgmail.NewEmail("", "a@b.c")}
	_, err := sender.Send(context.Background(), Message{ToEmail: "x@y.z"})
	assert.ErrorContains(t, err, "401")
}

func TestNewSenderWithoutKeyLogs(t *testing.T) {
	assert.Equal(t, "log", NewSender(config.SendGridConfig{}, nil).Name())
	assert.Equal(t, "sendgrid", NewSender(config.SendGridConfig{APIKey: "SG.x"}, nil).Name())
}
