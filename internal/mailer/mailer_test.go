package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailer(t *testing.T) *Mailer {
	t.Helper()
	m, err := New(Config{
		Host:    "localhost",
		Port:    587,
		From:    "ByteStream <noreply@example.com>",
		BaseURL: "https://share.example.com/",
	})
	require.NoError(t, err)
	return m
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{From: "a@b.c", BaseURL: "http://x"})
	assert.Error(t, err, "missing host")

	_, err = New(Config{Host: "smtp.example.com", BaseURL: "http://x"})
	assert.Error(t, err, "missing from")

	_, err = New(Config{Host: "smtp.example.com", From: "a@b.c"})
	assert.Error(t, err, "missing base url")
}

func TestRender_EmbedsLinkAndName(t *testing.T) {
	m := newTestMailer(t)

	body, err := m.render("123e4567-e89b-12d3-a456-426614174000", "report.pdf")
	require.NoError(t, err)

	assert.Contains(t, body, "https://share.example.com/file/123e4567-e89b-12d3-a456-426614174000")
	assert.Contains(t, body, "report.pdf")
	assert.Contains(t, body, "ByteStream")
	// Trailing slash on the base URL must not double up.
	assert.NotContains(t, body, "share.example.com//file")
}

func TestRender_EscapesFileName(t *testing.T) {
	m := newTestMailer(t)

	body, err := m.render("token", `<script>alert("x")</script>`)
	require.NoError(t, err)

	assert.False(t, strings.Contains(body, "<script>"), "html in file names must be escaped")
}
