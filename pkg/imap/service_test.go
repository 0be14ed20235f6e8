package imap

import (
	"context"
	"strings"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeops-backend/internal/inbox/domain"
)

const multipartMessage = "From: Coach Dan <dan@league.org>\r\n" +
	"Subject: Practice moved\r\n" +
	"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Practice is <b>moved</b></p>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Practice is moved to\r\n   Thursday at 5pm.\r\n" +
	"--XYZ--\r\n"

func TestSnippetFrom(t *testing.T) {
	snippet, err := snippetFrom(strings.NewReader(multipartMessage))
	require.NoError(t, err)
	assert.Equal(t, "Practice is moved to Thursday at 5pm.", snippet)
}

func TestSnippetFrom_HTMLOnly(t *testing.T) {
	raw := "Subject: Sale\r\nContent-Type: text/html\r\n\r\n<h1>Big</h1><p>sale today</p>\r\n"
	snippet, err := snippetFrom(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Big sale today", snippet)
}

func TestSnippetFrom_Truncates(t *testing.T) {
	raw := "Subject: Long\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n" + strings.Repeat("é", 500) + "\r\n"
	snippet, err := snippetFrom(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Len(t, []rune(snippet), snippetLength)
}

func TestConvertMessage(t *testing.T) {
	received := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	msg := &goimap.Message{
		Uid:          42,
		InternalDate: received,
		Flags:        []string{goimap.SeenFlag, goimap.FlaggedFlag},
		Envelope: &goimap.Envelope{
			Subject: "Practice moved",
			From:    []*goimap.Address{{PersonalName: "Coach Dan", MailboxName: "dan", HostName: "league.org"}},
		},
	}

	email := convertMessage(7, msg, strings.NewReader(multipartMessage))

	assert.Equal(t, "imap-7-42", email.MessageID)
	assert.Equal(t, "Practice moved", email.Subject)
	assert.Equal(t, "dan@league.org", email.Sender)
	assert.Equal(t, "Coach Dan", email.SenderName)
	assert.Equal(t, "high", email.Priority)
	assert.Equal(t, received, email.ReceivedAt)
	assert.Equal(t, domain.SourceIMAP, email.Source)
	assert.Equal(t, "Practice is moved to Thursday at 5pm.", email.Snippet)
}

func TestConvertMessage_NoEnvelope(t *testing.T) {
	email := convertMessage(1, &goimap.Message{Uid: 3}, nil)
	assert.Equal(t, "imap-1-3", email.MessageID)
	assert.Empty(t, email.Sender)
	assert.Empty(t, email.Snippet)
	assert.Empty(t, email.Priority)
}

func TestFetchRecent_RequiresCredentials(t *testing.T) {
	_, err := NewService().FetchRecent(context.Background(), Credentials{}, 10)
	assert.ErrorIs(t, err, domain.ErrNoMailSource)
}
