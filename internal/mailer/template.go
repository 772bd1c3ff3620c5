package mailer

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/pkg/currency"
	"github.com/tenderspro/backend/pkg/datetime"
)

var alertEmailTmpl = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1a1a1a;">
  <h2>New tender matching "{{.AlertName}}"</h2>
  <p><strong>{{.Title}}</strong></p>
  <table cellpadding="4">
    <tr><td>Wilaya</td><td>{{.Wilaya}}</td></tr>
    {{if .Category}}<tr><td>Category</td><td>{{.Category}}</td></tr>{{end}}
    {{if .Published}}<tr><td>Published</td><td>{{.Published}}</td></tr>{{end}}
    {{if .Deadline}}<tr><td>Deadline</td><td>{{.Deadline}}</td></tr>{{end}}
    {{if .SpecsPrice}}<tr><td>Specifications</td><td>{{.SpecsPrice}}</td></tr>{{end}}
  </table>
  <p><a href="{{.Link}}">View the tender</a></p>
</body>
</html>
`))

type alertEmailData struct {
	AlertName  string
	Title      string
	Wilaya     string
	Category   string
	Published  string
	Deadline   string
	SpecsPrice string
	Link       string
}

// AlertSubject is the subject line for one alert match.
func AlertSubject(alertName string) string {
	return fmt.Sprintf("New tender match: %s", alertName)
}

// RenderAlertEmail builds the HTML body for an alert match email.
func RenderAlertEmail(alert *model.Alert, tender *model.Tender, frontendURL string) (string, error) {
	data := alertEmailData{
		AlertName: alert.Name,
		Title:     tender.Title,
		Wilaya:    tender.Wilaya,
		Link:      strings.TrimSuffix(frontendURL, "/") + "/tenders/" + tender.ID.String(),
	}
	if tender.Category != nil {
		data.Category = *tender.Category
	}
	if tender.PublicationDate != nil {
		data.Published = datetime.FormatDate(*tender.PublicationDate)
	}
	if tender.Deadline != nil {
		data.Deadline = datetime.FormatDate(*tender.Deadline)
	}
	if tender.SpecificationsPrice != nil && tender.SpecificationsPrice.IsPositive() {
		data.SpecsPrice = currency.NewMoney(*tender.SpecificationsPrice, currency.DZD).Format()
	}

	var b strings.Builder
	if err := alertEmailTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render alert email: %w", err)
	}
	return b.String(), nil
}
