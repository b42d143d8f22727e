package imapsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Partnership proposal\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 -0700\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Let's work together.\r\n"

const multipartMessage = "From: carol@example.com\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Newsletter\r\n" +
	"Content-Type: multipart/alternative; boundary=frontier\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>Hello <b>there</b></p>\r\n" +
	"--frontier--\r\n"

func TestParseMessagePlainText(t *testing.T) {
	msg, err := ParseMessage([]byte(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "Partnership proposal", msg.Subject)
	assert.Contains(t, msg.From, "alice@example.com")
	assert.Equal(t, []string{"bob@example.com"}, msg.To)
	assert.Equal(t, "Let's work together.\r\n", msg.TextBody)
	assert.Equal(t, 2006, msg.Date.Year())
}

func TestParseMessageHTMLOnlyFallsBackToHTML(t *testing.T) {
	msg, err := ParseMessage([]byte(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, "Newsletter", msg.Subject)
	assert.True(t, strings.Contains(msg.TextBody, "Hello"), "classifier needs some content")
}

func TestParseMessageMalformed(t *testing.T) {
	_, err := ParseMessage([]byte("this is not a header line\r\n\r\nbody"))
	assert.Error(t, err)
}
