package decode

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/robertkrimen/otto"
)

// fromJavaScriptHrefs evaluates javascript: hrefs in a sandboxed otto VM and
// scans whatever string the expression produces. Sites assemble addresses
// with string concatenation here precisely to defeat static scanners.
func fromJavaScriptHrefs(d *document) []string {
	if d.doc == nil {
		return nil
	}
	var out []string
	d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		expr := strings.TrimPrefix(href, "javascript:")
		if decoded := evalJS(expr); decoded != "" {
			out = append(out, emailRe.FindAllString(decoded, -1)...)
		}
		// The raw expression may also carry a visible address.
		out = append(out, emailRe.FindAllString(normalize(expr), -1)...)
	})
	return out
}

// evalJS runs one expression with no host bindings. Otto panics on some
// malformed input, so evaluation is fenced with recover.
func evalJS(expr string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = ""
		}
	}()

	vm := otto.New()
	value, err := vm.Run(expr)
	if err != nil {
		return ""
	}
	s, err := value.ToString()
	if err != nil || s == "undefined" {
		return ""
	}
	return s
}
