package content

import (
	"fmt"
	"html"
	"invitation/src-server/model"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type bindKind int

const (
	bindText bindKind = iota
	bindLines
	bindSrc
	bindHref
)

type binding struct {
	field    string
	selector string
	kind     bindKind
	prefix   string
}

var bindings = []binding{
	{field: FieldHeroImage, selector: ".hero-image img", kind: bindSrc},
	{field: FieldEventTitle, selector: ".event-title"},
	{field: FieldEventSubtitle, selector: ".event-subtitle"},
	{field: FieldEventDate, selector: ".event-date span"},
	{field: FieldEventLocation, selector: ".event-location span"},
	{field: FieldEventDetailTime, selector: ".info-item:nth-child(1) p", kind: bindLines},
	{field: FieldEventDetailLocation, selector: ".info-item:nth-child(2) p", kind: bindLines},
	{field: FieldEventTarget, selector: ".info-item:nth-child(3) p", kind: bindLines},
	{field: FieldEventFee, selector: ".info-item:nth-child(4) p"},
	{field: FieldLocationAddress, selector: ".address p", kind: bindLines},
	{field: FieldSubwayInfo, selector: ".transport-item:nth-child(1) span"},
	{field: FieldBusInfo, selector: ".transport-item:nth-child(2) span"},
	{field: FieldParkingInfo, selector: ".transport-item:nth-child(3) span"},
	{field: FieldContactPhone, selector: ".contact-phone span:last-child"},
	{field: FieldContactPhone, selector: ".contact-phone", kind: bindHref, prefix: "tel:"},
	{field: FieldContactEmail, selector: ".contact-email span:last-child"},
	{field: FieldContactEmail, selector: ".contact-email", kind: bindHref, prefix: "mailto:"},
	{field: FieldDonationMessage, selector: ".donation-content p"},
	{field: FieldBankName, selector: ".bank-name"},
	{field: FieldAccountNumber, selector: ".account-number"},
	{field: FieldAccountHolder, selector: ".account-holder", prefix: "예금주: "},
}

// Render writes merged into doc and returns the selectors it could not
// find. Missing targets are skipped.
func Render(doc *goquery.Document, merged model.ContentOverrides) []string {
	var missing []string
	for _, b := range bindings {
		value := merged.Get(b.field)
		if value == "" {
			continue
		}
		sel := doc.Find(b.selector)
		if sel.Length() == 0 {
			slog.Warn("content target not found", "field", b.field, "selector", b.selector)
			missing = append(missing, b.selector)
			continue
		}
		switch b.kind {
		case bindText:
			sel.SetText(b.prefix + value)
		case bindLines:
			sel.SetHtml(linesToHTML(value))
		case bindSrc:
			sel.SetAttr("src", value)
		case bindHref:
			sel.SetAttr("href", b.prefix+value)
		}
	}

	if account := merged.Get(FieldAccountNumber); account != "" {
		doc.Find(".copy-account").SetAttr("data-account", account)
	}

	if greeting := merged.Get(FieldGreetingContent); greeting != "" {
		sel := doc.Find(".greeting-content")
		if sel.Length() == 0 {
			slog.Warn("content target not found", "field", FieldGreetingContent)
			missing = append(missing, ".greeting-content")
		} else {
			sel.SetHtml(greetingHTML(greeting, merged.Get(FieldGreetingSignature)))
		}
	}

	if len(merged.GalleryImages) > 0 {
		sel := doc.Find(".gallery-grid")
		if sel.Length() == 0 {
			slog.Warn("content target not found", "field", model.GalleryImagesField)
			missing = append(missing, ".gallery-grid")
		} else {
			sel.SetHtml(galleryHTML(merged.GalleryImages))
		}
	}
	return missing
}

// RenderHTML parses page, renders merged into it and serialises it back.
func RenderHTML(page string, merged model.ContentOverrides) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("RenderHTML: %w", err)
	}
	Render(doc, merged)
	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("RenderHTML: %w", err)
	}
	return out, nil
}

func linesToHTML(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return strings.Join(lines, "<br>")
}

func greetingHTML(content, signature string) string {
	var b strings.Builder
	for _, p := range strings.Split(content, "\n\n") {
		if p == "" {
			continue
		}
		b.WriteString("<p>" + linesToHTML(p) + "</p>")
	}
	if signature != "" {
		b.WriteString(`<div class="signature"><p>` + html.EscapeString(signature) + "</p></div>")
	}
	return b.String()
}

func galleryHTML(images []string) string {
	var b strings.Builder
	for i, src := range images {
		fmt.Fprintf(&b, `<div class="gallery-item"><a href="/?photo=%d" data-index="%d"><img src="%s" alt="Gallery image %d"></a></div>`, i, i, html.EscapeString(src), i+1)
	}
	return b.String()
}
