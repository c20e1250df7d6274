package emailsvc

import (
	"encoding/json"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kamusi/core"
)

type recLogger struct {
	mu     sync.Mutex
	errors []string
}

func (*recLogger) Debug(string, ...interface{}) {}
func (*recLogger) Info(string, ...interface{})  {}
func (*recLogger) Warn(string, ...interface{})  {}
func (l *recLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}
func (*recLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

var (
	student = mail.Address{Name: "Juma", Address: "juma@example.com"}
	data    = map[string]interface{}{
		"Username":      "juma",
		"CourseTitle":   "Swahili 101",
		"OwnerUsername": "amina",
		"CourseSlug":    "swahili-101",
	}
)

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	ClearSentMessages()
	svc := NewConsoleServiceMock(conf, &recLogger{})

	svc.SendMessages(
		core.NewEmailMessage(conf, "Welcome", "enrollment", data, student),
		core.NewEmailMessage(conf, "Nobody", "enrollment", data), // no recipient
		&core.EmailMessage{To: []mail.Address{student}, Subject: "Plain", BodyStr: "hello"},
	)

	sent := LastSentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Welcome", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, `You are now enrolled in "Swahili 101"`)
	assert.NotEmpty(t, sent[0].HTMLContent)
	assert.Equal(t, "hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	ClearSentMessages()
	assert.Empty(t, LastSentMessages())
}

func TestConsoleService_renderError(t *testing.T) {
	conf := core.NewTestConfig()
	ClearSentMessages()
	logger := &recLogger{}
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(core.NewEmailMessage(conf, "Broken", "enrollment", map[string]interface{}{}, student))

	assert.Empty(t, LastSentMessages())
	require.Len(t, logger.errors, 1)
	assert.Contains(t, logger.errors[0], `rendering "enrollment" email`)
}

func TestConsoleService_format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := consoleService{from: conf.DefaultFromEmail(), subjPrefix: "[Kamusi] "}
	msg := core.EmailMessage{
		To:           []mail.Address{student},
		Cc:           []mail.Address{{Address: "amina@example.com"}},
		Subject:      "Welcome",
		TemplateName: "enrollment",
		TextContent:  "plain body",
		HTMLContent:  "<p>html body</p>",
	}
	date := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

	raw, err := svc.format(msg, date)
	require.NoError(t, err)

	assert.Contains(t, raw, "Subject: [Kamusi] Welcome\r\n")
	assert.Contains(t, raw, `To: "Juma" <juma@example.com>`+"\r\n")
	assert.Contains(t, raw, "Cc: <amina@example.com>\r\n")
	assert.Contains(t, raw, "Date: Thu, 04 Mar 2021 05:06:07 +0000\r\n")
	assert.Contains(t, raw, "X-Kamusi-Template: enrollment\r\n")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
	assert.Less(t, strings.Index(raw, "text/plain"), strings.Index(raw, "text/html"))
}

type sgPayload struct {
	Personalizations []struct {
		To      []struct{ Email string } `json:"to"`
		Subject string                   `json:"subject"`
	} `json:"personalizations"`
	Categories   []string `json:"categories"`
	MailSettings *struct {
		SandboxMode struct {
			Enable bool `json:"enable"`
		} `json:"sandbox_mode"`
	} `json:"mail_settings"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func mockSendgrid(t *testing.T, status int) *[]sgPayload {
	t.Helper()

	var (
		mu       sync.Mutex
		payloads []sgPayload
	)
	origAPI := sendgridAPI
	t.Cleanup(func() { sendgridAPI = origAPI })
	sendgridAPI = func(req rest.Request) (*rest.Response, error) {
		var p sgPayload
		if err := json.Unmarshal(req.Body, &p); err != nil {
			return nil, err
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		return &rest.Response{StatusCode: status, Body: "oops"}, nil
	}
	return &payloads
}

func TestSendgridService(t *testing.T) {
	conf := core.NewTestConfig()

	t.Run("payload", func(t *testing.T) {
		payloads := mockSendgrid(t, 202)
		logger := &recLogger{}
		svc := NewSendgridService(conf, logger)

		svc.sendAll([]*core.EmailMessage{
			core.NewEmailMessage(conf, "Welcome", "enrollment", data, student),
			core.NewEmailMessage(conf, "Nobody", "enrollment", data),
		})

		assert.Empty(t, logger.errors)
		require.Len(t, *payloads, 1)
		p := (*payloads)[0]
		require.Len(t, p.Personalizations, 1)
		assert.Equal(t, "[Kamusi] Welcome", p.Personalizations[0].Subject)
		assert.Equal(t, "juma@example.com", p.Personalizations[0].To[0].Email)
		assert.Equal(t, []string{"enrollment"}, p.Categories)
		require.NotNil(t, p.MailSettings)
		assert.True(t, p.MailSettings.SandboxMode.Enable)
		require.Len(t, p.Content, 2)
		assert.Equal(t, "text/plain", p.Content[0].Type)
		assert.Equal(t, "text/html", p.Content[1].Type)
	})

	t.Run("plain body, no sandbox", func(t *testing.T) {
		payloads := mockSendgrid(t, 202)
		svc := NewSendgridService(conf, &recLogger{})
		svc.sandbox = false

		svc.sendAll([]*core.EmailMessage{{To: []mail.Address{student}, Subject: "Hi", BodyStr: "hello"}})

		require.Len(t, *payloads, 1)
		p := (*payloads)[0]
		assert.Empty(t, p.Categories)
		assert.Nil(t, p.MailSettings)
		require.Len(t, p.Content, 1)
		assert.Equal(t, "hello", p.Content[0].Value)
	})

	t.Run("rejected", func(t *testing.T) {
		mockSendgrid(t, 400)
		logger := &recLogger{}
		svc := NewSendgridService(conf, logger)

		svc.sendAll([]*core.EmailMessage{core.NewEmailMessage(conf, "Welcome", "enrollment", data, student)})

		require.Len(t, logger.errors, 1)
		assert.Contains(t, logger.errors[0], "status 400: oops")
	})
}
