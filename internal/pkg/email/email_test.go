package email

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	sent []Message
}

func (r *recordingTransport) send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func TestTemplatedEmails(t *testing.T) {
	rec := &recordingTransport{}
	svc := &templated{appName: "CampusOps", transport: rec}

	require.NoError(t, svc.SendWelcomeEmail(context.Background(), "a@x.edu", "Anita", "BT24CS0001", "https://reset/link"))
	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "a@x.edu", "https://reset/other"))

	require.Len(t, rec.sent, 2)
	assert.Equal(t, "a@x.edu", rec.sent[0].To)
	assert.Contains(t, rec.sent[0].Subject, "CampusOps")
	assert.Contains(t, rec.sent[0].HTMLBody, "BT24CS0001")
	assert.Contains(t, rec.sent[0].HTMLBody, "https://reset/link")
	assert.Contains(t, rec.sent[1].HTMLBody, "https://reset/other")
}

func TestUnconfiguredTransportsOnlyLog(t *testing.T) {
	ctx := context.Background()
	smtpSvc := NewSMTPService(SMTPConfig{Host: "localhost", Port: 25}, "CampusOps", zerolog.Nop())
	assert.NoError(t, smtpSvc.SendPasswordResetEmail(ctx, "a@x.edu", "link"))

	sg := NewSendGridService("", "CampusOps", "CampusOps", "no-reply@x.edu", zerolog.Nop())
	assert.NoError(t, sg.SendPasswordResetEmail(ctx, "a@x.edu", "link"))
}

func TestSendGridPayload(t *testing.T) {
	tr := &sendgridTransport{key: "k"}
	m := tr.build(Message{To: "a@x.edu", ToName: "Anita", Subject: "Hi", HTMLBody: "<p>x</p>"})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Hi", m.Personalizations[0].Subject)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/html", m.Content[0].Type)
}
