package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

//go:embed all:templates/email
var emailFS embed.FS

const emailTemplatesDir = "templates/email"

var (
	templates map[string]emailTemplate // by name, without extension
	tmplErr   error
	tmplInit  sync.Once
)

// emailTemplate pairs the text (.txt) and html (.gohtml) variants of one email; either may be nil.
type emailTemplate struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string

		AppName         string
		FrontendBaseURL string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewEmailMessage returns a templated message addressed to `to`, carrying the app's context data.
func NewEmailMessage(conf *Config, subject, tmplName string, data interface{}, to ...mail.Address) *EmailMessage {
	return &EmailMessage{
		To:              to,
		Subject:         subject,
		TemplateName:    tmplName,
		TemplateData:    data,
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
	}
}

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		AppName:         m.AppName,
		FrontendBaseURL: m.FrontendBaseURL,
		Data:            m.TemplateData,
	}
}

// execute renders the "base" layout of tmpl with the message context.
func (m *EmailMessage) execute(tmpl executor) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", m.getContextData()); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render fills TextContent & HTMLContent. BodyStr, when set, is the text content as is.
// Unknown templates render nothing.
func (m *EmailMessage) Render() (err error) {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	if err = ParseEmailTemplates(); err != nil {
		return err
	}

	tmpl := templates[m.TemplateName]
	if m.BodyStr == "" && tmpl.text != nil {
		if m.TextContent, err = m.execute(tmpl.text); err != nil {
			return errors.Wrap(err, "rendering text")
		}
	}
	if tmpl.html != nil {
		if m.HTMLContent, err = m.execute(tmpl.html); err != nil {
			return errors.Wrap(err, "rendering html")
		}
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return m.TextContent != "" || m.HTMLContent != "" }

// ParseEmailTemplates parses the embedded email templates once.
func ParseEmailTemplates() error {
	tmplInit.Do(func() { templates, tmplErr = parseTemplates(emailFS, emailTemplatesDir) })
	return tmplErr
}

// parseTemplates parses every <name>.txt and <name>.gohtml of dir along with its _base layout.
func parseTemplates(fsys fs.FS, dir string) (map[string]emailTemplate, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	parsed := make(map[string]emailTemplate)
	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fname, "_") {
			continue
		}
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		layout, page := path.Join(dir, "_base"+ext), path.Join(dir, fname)

		tmpl := parsed[name]
		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(fsys, layout, page)
			if err == nil {
				tmpl.text.Option("missingkey=error")
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(fsys, layout, page)
			if err == nil {
				tmpl.html.Option("missingkey=error")
			}
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fname)
		}
		parsed[name] = tmpl
	}
	return parsed, nil
}
