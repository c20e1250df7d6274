package emailsvc

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/kamusi/core"
)

// outbox keeps every message a console service delivered, for assertions in tests.
var outbox struct {
	sync.Mutex
	msgs []core.EmailMessage
}

func ClearSentMessages() {
	outbox.Lock()
	outbox.msgs = nil
	outbox.Unlock()
}

// LastSentMessages returns a copy of the delivered messages, oldest first.
func LastSentMessages() []core.EmailMessage {
	outbox.Lock()
	defer outbox.Unlock()
	return append([]core.EmailMessage(nil), outbox.msgs...)
}

// consoleService writes messages as MIME text instead of sending them.
type consoleService struct {
	from        mail.Address
	subjPrefix  string
	out         io.Writer
	logger      core.Logger
	synchronous bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        os.Stderr,
		logger:     logger,
	}
}

// NewConsoleServiceMock delivers synchronously and prints nothing.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleService{
		from:        conf.DefaultFromEmail(),
		subjPrefix:  "[" + conf.AppName + "] ",
		out:         io.Discard,
		logger:      logger,
		synchronous: true,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.synchronous {
			svc.deliver(msg)
		} else {
			go svc.deliver(msg)
		}
	}
}

func (svc consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering %q email: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	raw, err := svc.format(*msg, time.Now())
	if err != nil {
		svc.logger.Error(fmt.Sprintf("formatting %q email: %v", msg.TemplateName, err), err)
		return
	}
	_, _ = io.WriteString(svc.out, raw)

	outbox.Lock()
	outbox.msgs = append(outbox.msgs, *msg)
	outbox.Unlock()
}

// format renders msg as a multipart/alternative message with CRLF line endings.
func (svc consoleService) format(msg core.EmailMessage, date time.Time) (string, error) {
	var b strings.Builder
	header := func(key, value string) { _, _ = fmt.Fprintf(&b, "%s: %s\r\n", key, value) }

	header("From", svc.from.String())
	header("MIME-Version", "1.0")
	header("Date", date.Format(time.RFC1123Z))
	header("Subject", svc.subjPrefix+msg.Subject)
	header("To", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		header("Cc", joinAddresses(msg.Cc))
	}
	if msg.TemplateName != "" {
		header("X-Kamusi-Template", msg.TemplateName)
	}

	parts := multipart.NewWriter(&b)
	header("Content-Type", "multipart/alternative; boundary="+parts.Boundary())
	b.WriteString("\r\n")

	bodies := []struct{ ctype, content string }{{"text/plain", msg.TextContent}}
	if msg.HTMLContent != "" {
		bodies = append(bodies, struct{ ctype, content string }{"text/html", msg.HTMLContent})
	}
	for _, body := range bodies {
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {body.ctype + "; charset=utf-8"}})
		if err != nil {
			return "", err
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", body.content)
	}
	if err := parts.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, a := range addrs {
		strs = append(strs, a.String())
	}
	return strings.Join(strs, ", ")
}
