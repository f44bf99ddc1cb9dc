package mailbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/jobpulse/internal/scan"
)

const plainMessage = `From: LinkedIn <jobs-noreply@linkedin.com>
To: me@example.com
Subject: You applied for Software Engineer at Acme Corp
Date: Mon, 02 Mar 2026 10:00:00 +0000
Content-Type: text/plain; charset=utf-8

Your application was sent to Acme Corp.
`

const alternativeMessage = `From: careers@barclays.com
Subject: =?UTF-8?Q?Update_on_your_application?=
Date: Tue, 10 Mar 2026 08:15:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html; charset=utf-8

<p>We regret to inform you</p>
--b1
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

We regret to inform you that we will not be moving forward.=20
--b1--
`

const htmlOnlyMessage = `From: "Globex Recruiting" <no-reply@greenhouse.io>
Subject: Interview invitation
Date: Wed, 01 Jan 2025 12:00:00 +0000
Content-Type: text/html; charset=utf-8

<html><body><p>We would like to schedule an interview.</p></body></html>
`

func TestParseMessage_PlainText(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "LinkedIn <jobs-noreply@linkedin.com>", msg.Sender)
	assert.Equal(t, "You applied for Software Engineer at Acme Corp", msg.Subject)
	assert.Equal(t, "2026-03-02", msg.ReceivedDate)
	assert.Contains(t, msg.Body, "Your application was sent to Acme Corp.")
}

func TestParseMessage_PrefersPlainPart(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(alternativeMessage))
	require.NoError(t, err)

	assert.Equal(t, "careers@barclays.com", msg.Sender)
	assert.Equal(t, "Update on your application", msg.Subject)
	assert.Contains(t, msg.Body, "We regret to inform you that we will not be moving forward.")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestParseMessage_FallsBackToHTML(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(htmlOnlyMessage))
	require.NoError(t, err)

	assert.Equal(t, "Globex Recruiting <no-reply@greenhouse.io>", msg.Sender)
	assert.Contains(t, msg.Body, "<p>We would like to schedule an interview.</p>")
}

func TestParseMessage_Malformed(t *testing.T) {
	_, err := ParseMessage(strings.NewReader("this is not a message header\n\nbody"))
	assert.Error(t, err)
}

func writeMailbox(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestDirSource_Fetch(t *testing.T) {
	dir := writeMailbox(t, map[string]string{
		"a.eml":     plainMessage,
		"b.eml":     alternativeMessage,
		"c.eml":     htmlOnlyMessage,
		"bad.eml":   "garbage without headers\n\n",
		"notes.txt": plainMessage,
	})
	src := NewDirSource(dir, zaptest.NewLogger(t))

	emails, err := src.Fetch(context.Background(), scan.FetchOptions{})
	require.NoError(t, err)
	require.Len(t, emails, 3)
	assert.Equal(t, "2026-03-10", emails[0].ReceivedDate, "newest first")
	assert.Equal(t, "2026-03-02", emails[1].ReceivedDate)
	assert.Equal(t, "2025-01-01", emails[2].ReceivedDate)
	assert.Equal(t, "dir:"+dir, src.Name())
}

func TestDirSource_SinceAndMaxResults(t *testing.T) {
	dir := writeMailbox(t, map[string]string{
		"a.eml": plainMessage,
		"b.eml": alternativeMessage,
		"c.eml": htmlOnlyMessage,
	})
	src := NewDirSource(dir, nil)

	emails, err := src.Fetch(context.Background(), scan.FetchOptions{
		Since: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, emails, 2)

	emails, err = src.Fetch(context.Background(), scan.FetchOptions{MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "Update on your application", emails[0].Subject)
}

func TestDirSource_MissingDirectory(t *testing.T) {
	src := NewDirSource(filepath.Join(t.TempDir(), "missing"), nil)
	_, err := src.Fetch(context.Background(), scan.FetchOptions{})
	assert.Error(t, err)
}

func TestParseError(t *testing.T) {
	cause := errors.New("boom")
	err := &ParseError{Path: "x.eml", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to parse message x.eml: boom", err.Error())
}
