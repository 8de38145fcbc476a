package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/propline/propline/models"
)

// ListingRenderer produces the subject line and HTML body for a cycle's
// distribution email
type ListingRenderer interface {
	Render(cycleNumber int, listings []*models.Listing, asOf time.Time) (subject, html string, err error)
}

const listingEmailTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>{{ .Heading }}</h2>
  <p>Current listings as of {{ .AsOf }}:</p>
  <table cellpadding="8" cellspacing="0" border="0" style="border-collapse: collapse;">
    <tr style="background: #f0f0f0;">
      <th align="left">Property</th>
      <th align="left">Address</th>
      <th align="right">Price</th>
    </tr>
    {{ range .Listings }}
    <tr style="border-bottom: 1px solid #ddd;">
      <td>{{ .Title }}</td>
      <td>{{ .Address }}</td>
      <td align="right">${{ .Price }}</td>
    </tr>
    {{ end }}
  </table>
  <p style="color: #888; font-size: 12px;">You are receiving this because you are on our distribution list.</p>
</body>
</html>`

type templateRenderer struct {
	tmpl *template.Template
}

// NewListingRenderer creates a renderer backed by the built-in HTML template
func NewListingRenderer() (ListingRenderer, error) {
	tmpl, err := template.New("listing_email").Parse(listingEmailTemplate)
	if err != nil {
		return nil, err
	}
	return &templateRenderer{tmpl: tmpl}, nil
}

func (r *templateRenderer) Render(cycleNumber int, listings []*models.Listing, asOf time.Time) (string, string, error) {
	subject := fmt.Sprintf("Property Listings Update - Cycle %d - %s", cycleNumber, asOf.Format("January 2, 2006"))

	data := struct {
		Heading  string
		AsOf     string
		Listings []*models.Listing
	}{
		Heading:  fmt.Sprintf("Cycle %d Listings", cycleNumber),
		AsOf:     asOf.Format("January 2, 2006"),
		Listings: listings,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
