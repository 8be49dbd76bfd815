package decode

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxJSONLDDepth caps the recursive walk so cyclic or pathological
// structured data cannot recurse unboundedly.
const maxJSONLDDepth = 5

// fromJSONLD parses application/ld+json blocks and walks them for string
// values that are, or are keyed as, email addresses. Organization and
// LocalBusiness markup routinely carries a contact address here.
func fromJSONLD(d *document) []string {
	if d.doc == nil {
		return nil
	}
	var out []string
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return
		}
		out = append(out, walkJSONLD(data, 0)...)
	})
	return out
}

func walkJSONLD(node any, depth int) []string {
	if depth > maxJSONLDDepth {
		return nil
	}
	var out []string
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if s, ok := child.(string); ok && strings.Contains(strings.ToLower(key), "email") {
				s = strings.TrimPrefix(strings.TrimSpace(s), "mailto:")
				out = append(out, s)
				continue
			}
			out = append(out, walkJSONLD(child, depth+1)...)
		}
	case []any:
		for _, child := range v {
			out = append(out, walkJSONLD(child, depth+1)...)
		}
	case string:
		out = append(out, emailRe.FindAllString(v, -1)...)
	}
	return out
}
