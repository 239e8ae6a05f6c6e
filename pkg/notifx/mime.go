package notifx

import (
	"bytes"
	"io"

	"gopkg.in/gomail.v2"
)

// NewMIMEMessage builds the gomail message for msg. Providers that send raw
// MIME (SMTP, SES raw) share it.
func NewMIMEMessage(msg EmailMessage) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))

	if msg.FromName != "" {
		m.SetAddressHeader("From", msg.From, msg.FromName)
	} else {
		m.SetHeader("From", msg.From)
	}
	if len(msg.To) == 1 && msg.ToName != "" {
		m.SetAddressHeader("To", msg.To[0], msg.ToName)
	} else {
		m.SetHeader("To", msg.To...)
	}
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if len(msg.BCC) > 0 {
		m.SetHeader("Bcc", msg.BCC...)
	}
	if msg.ReplyTo != "" {
		if msg.ReplyToName != "" {
			m.SetAddressHeader("Reply-To", msg.ReplyTo, msg.ReplyToName)
		} else {
			m.SetHeader("Reply-To", msg.ReplyTo)
		}
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
	default:
		m.SetBody("text/html", msg.HTMLBody)
	}

	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m
}

// RawMIME renders msg as a complete MIME document.
func RawMIME(msg EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := NewMIMEMessage(msg).WriteTo(&buf); err != nil {
		return nil, notifxErrors.NewWithCause(ErrBuildMessage, err)
	}
	return buf.Bytes(), nil
}
