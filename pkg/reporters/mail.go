package reporters

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/jordan-wright/email"
	"github.com/rotisserie/eris"

	"github.com/biologyguy/tattle/pkg/config"
	"github.com/biologyguy/tattle/pkg/report"
	"github.com/biologyguy/tattle/pkg/tlog"
)

var reportMailText = template.Must(template.New("report mail").Parse(`An error report was submitted by {{.User.ID}}.

Application: {{.Error.App.Name}} {{.Error.App.Version}}
Location:    {{.Error.Package}}.{{.Error.Function}} ({{.Error.File}}:{{.Error.Line}})
Kind:        {{.Error.Kind}}
Message:     {{.Error.Message}}
System:      {{.Error.System.OS}}/{{.Error.System.Arch}} ({{.Error.System.Runtime}})
Time:        {{.Error.Time}}

{{.Error.Trace}}
`))

// MailReporter sends reports to a maintainer address over SMTP.
type MailReporter struct {
	cfg *config.Config
}

func NewMailReporter(cfg *config.Config) *MailReporter {
	return &MailReporter{cfg: cfg}
}

func (r *MailReporter) Name() string {
	return "mail"
}

// CheckPrevious always returns false; mail has no queryable archive.
func (r *MailReporter) CheckPrevious(ctx context.Context, reportErr *report.Error) (bool, error) {
	return false, nil
}

// Report renders the report into a plain-text mail and sends it.
func (r *MailReporter) Report(ctx context.Context, rep *report.Report) (string, error) {
	mailCfg := r.cfg.Reporters.Mail
	tlog.Log(ctx).Debug().Msgf("Sending report mail to %s", mailCfg.To)

	mail := email.NewEmail()
	mail.From = mailCfg.From
	mail.Subject = mailCfg.Subject + " (" + rep.Error.Fingerprint()[:12] + ")"
	mail.To = []string{mailCfg.To}

	text := strings.Builder{}
	err := reportMailText.Execute(&text, rep)
	if err != nil {
		return "", eris.Wrap(err, "failed to execute report mail template")
	}

	mail.Text = []byte(text.String())

	auth := smtp.PlainAuth("", mailCfg.Username, mailCfg.Password, mailCfg.Server)
	addr := fmt.Sprintf("%s:%d", mailCfg.Server, mailCfg.Port)

	if mailCfg.Encryption == "STARTTLS" {
		err = mail.SendWithStartTLS(addr, auth, nil)
	} else if mailCfg.Encryption == "SSL" {
		err = mail.SendWithTLS(addr, auth, nil)
	} else {
		err = mail.Send(addr, auth)
	}

	if err != nil {
		return "", eris.Wrap(err, "failed to send mail")
	}

	tlog.Log(ctx).Debug().Msg("Mail successfully sent")
	return "mailed " + mailCfg.To, nil
}
