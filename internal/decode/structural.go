package decode

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contactContextSelector matches elements whose class or id suggests they
// hold contact details.
const contactContextSelector = `[class*="contact"], [id*="contact"], [class*="footer"], [id*="footer"], [class*="support"], [id*="support"], [class*="help"], [id*="help"], address`

// socialLinkSelector anchors the sweep of text adjacent to social links and
// mail-icon markup, where addresses often sit unlabeled.
const socialLinkSelector = `a[href*="facebook.com"], a[href*="instagram.com"], a[href*="twitter.com"], a[href*="x.com"], a[href*="linkedin.com"], [class*="icon-mail"], [class*="mail-icon"], [class*="fa-envelope"], [class*="icon-email"]`

// fromStructural sweeps page regions that structurally suggest contact
// context: contact/footer/support containers, contact-form targets and
// hidden fields, and text around social-media links.
func fromStructural(d *document) []string {
	if d.doc == nil {
		return nil
	}
	var out []string

	d.doc.Find(contactContextSelector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, emailRe.FindAllString(normalize(sel.Text()), -1)...)
	})

	d.doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		if action, ok := form.Attr("action"); ok {
			out = append(out, emailRe.FindAllString(normalize(action), -1)...)
		}
		form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
			if value, ok := input.Attr("value"); ok {
				out = append(out, emailRe.FindAllString(normalize(value), -1)...)
			}
		})
	})

	d.doc.Find(socialLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		parent := sel.Parent()
		if parent.Length() == 0 {
			return
		}
		out = append(out, emailRe.FindAllString(normalize(parent.Text()), -1)...)
	})

	d.doc.Find("meta[content]").Each(func(_ int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		if strings.Contains(content, "@") {
			out = append(out, emailRe.FindAllString(normalize(content), -1)...)
		}
	})

	return out
}
