package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/crowd-list/app/database"
)

// Channel describes the RSS channel wrapping stored offerings.
type Channel struct {
	Title    string
	Link     string
	SelfLink string
	Version  string
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders offerings, newest first, as an RSS 2.0 document.
func (g *Generator) Run(channel Channel, offerings []database.StoredOffering) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", "Regulation Crowdfunding offerings filed with the SEC", 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(offerings) > 0 {
		lastBuildDate = offerings[0].CreatedAt.In(time.Local)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Crowd-List/%s", channel.Version), 4)

	for _, offering := range offerings {
		g.writeItem(&buf, offering)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, offering database.StoredOffering) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(offering.ID))
	buf.WriteString("</guid>\n")

	title := offering.CompanyName
	if title == "" {
		title = "CIK " + offering.CompanyCIK
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", offering.DocumentURL, 6)
	g.writeElement(buf, "description", g.describe(offering), 6)
	g.writeElement(buf, "pubDate", offering.CreatedAt.In(time.Local).Format(time.RFC1123Z), 6)

	if offering.FundingPortal != "" {
		g.writeElement(buf, "category", offering.FundingPortal, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) describe(offering database.StoredOffering) string {
	var parts []string

	if offering.MaxOfferingAmount.Valid {
		parts = append(parts, "Maximum offering: $"+offering.MaxOfferingAmount.Decimal.StringFixed(2))
	}
	if offering.PricePerShare.Valid {
		parts = append(parts, "Price per security: $"+offering.PricePerShare.Decimal.String())
	}
	if offering.DeadlineDate != "" {
		parts = append(parts, "Deadline: "+offering.DeadlineDate)
	}
	if offering.CompanyState != "" {
		parts = append(parts, "State: "+offering.CompanyState)
	}
	if offering.CompanyURL != "" {
		parts = append(parts, "Website: "+offering.CompanyURL)
	}
	if offering.Summary != "" {
		parts = append(parts, offering.Summary)
	}

	if len(parts) == 0 {
		return "No description available"
	}
	return strings.Join(parts, "\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
