package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var htmlBody = htmltemplate.Must(htmltemplate.New("delivery.html").Parse(`<!doctype html>
<html>
<body style="font-family: Georgia, serif; color: #2d2a32; max-width: 560px; margin: 0 auto;">
  <p>Dear {{.RecipientName}},</p>
  <p>{{.SenderName}} left you a {{.Kind}} message: <strong>{{.MessageTitle}}</strong>.</p>
  <p><a href="{{.ViewURL}}" style="background: #6b4f9e; color: #fff; padding: 12px 20px; border-radius: 6px; text-decoration: none;">Open your message</a></p>
  <p style="font-size: 12px; color: #888;">If the button does not work, copy this link: {{.ViewURL}}</p>
</body>
</html>
`))

var textBody = texttemplate.Must(texttemplate.New("delivery.txt").Parse(`Dear {{.RecipientName}},

{{.SenderName}} left you a {{.Kind}} message: {{.MessageTitle}}.

Open it here: {{.ViewURL}}
`))

// emailView is the template data. Delivery.Note is the author's private
// annotation and is deliberately absent.
type emailView struct {
	RecipientName string
	SenderName    string
	MessageTitle  string
	Kind          string
	ViewURL       string
}

// EmailSender is the subset of the Resend emails service used here.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier emails recipients through Resend.
type ResendNotifier struct {
	Emails  EmailSender
	From    string
	BaseURL string
}

// NewResendNotifier returns ErrNotConfigured when apiKey is blank.
func NewResendNotifier(apiKey, from, appBaseURL string) (*ResendNotifier, *resend.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, nil, ErrNotConfigured
	}
	client := resend.NewClient(apiKey)
	return &ResendNotifier{
		Emails:  client.Emails,
		From:    from,
		BaseURL: strings.TrimRight(appBaseURL, "/"),
	}, client, nil
}

// ViewURL is the public link for a delivered message.
func ViewURL(baseURL, messageID string) string {
	return strings.TrimRight(baseURL, "/") + "/view/" + messageID
}

// Send renders and sends the delivery email.
func (n *ResendNotifier) Send(ctx context.Context, d Delivery) error {
	if n == nil || n.Emails == nil {
		return ErrNotConfigured
	}
	ctx, span := otel.Tracer("notify/ResendNotifier").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("message.id", d.MessageID)),
	)
	defer span.End()

	req, err := n.buildRequest(d)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if _, err := n.Emails.SendWithContext(ctx, req); err != nil {
		span.RecordError(err)
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func (n *ResendNotifier) buildRequest(d Delivery) (*resend.SendEmailRequest, error) {
	if strings.TrimSpace(d.RecipientEmail) == "" {
		return nil, fmt.Errorf("notify: empty recipient email for message %s", d.MessageID)
	}
	view := emailView{
		RecipientName: d.RecipientName,
		SenderName:    d.SenderName,
		MessageTitle:  d.MessageTitle,
		Kind:          strings.ToLower(d.MessageType),
		ViewURL:       ViewURL(n.BaseURL, d.MessageID),
	}
	if view.SenderName == "" {
		view.SenderName = "Someone who loves you"
	}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, view); err != nil {
		return nil, err
	}
	if err := textBody.Execute(&text, view); err != nil {
		return nil, err
	}
	return &resend.SendEmailRequest{
		From:    n.From,
		To:      []string{d.RecipientEmail},
		Subject: fmt.Sprintf("%s left you a message", view.SenderName),
		Html:    html.String(),
		Text:    text.String(),
		Tags:    []resend.Tag{{Name: "message_id", Value: d.MessageID}},
		Headers: map[string]string{"X-Entity-Ref-ID": d.MessageID},
	}, nil
}
