package email

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer_FallsBackToLog(t *testing.T) {
	m := NewMailer(SMTPConfig{}, zerolog.Nop())
	_, ok := m.(*LogMailer)
	require.True(t, ok)
	assert.NoError(t, m.SendNotification("a@example.org", "A", "hello", "/actions/1"))
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m := NewMailer(SMTPConfig{
		Host:      "smtp.example.org",
		Port:      587,
		FromName:  "CommunityLink",
		FromEmail: "noreply@communitylink.org",
		BaseURL:   "https://communitylink.org/",
	}, zerolog.Nop()).(*SMTPMailer)

	msg := m.buildMessage("ana@example.org", "Ana", "Your application for 'Beach' was Accepted.", "/actions/3")
	assert.Equal(t, []string{"CommunityLink notification"}, msg.GetHeader("Subject"))
	assert.Contains(t, msg.GetHeader("Message-ID")[0], "@communitylink.org>")
	assert.Contains(t, msg.GetHeader("To")[0], "ana@example.org")
}

func TestRenderHTML_Escapes(t *testing.T) {
	out := renderHTML("<b>", "it's <here>", "https://x/actions/1")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.Contains(t, out, "it&#39;s &lt;here&gt;")
	assert.Contains(t, out, `href="https://x/actions/1"`)
}
