package validate

import "strings"

// disposableDomains is a fixed blacklist of throwaway-mail providers. A hit
// is an automatic negative regardless of DNS.
var disposableDomains = buildDomainSet(`
mailinator.com
tempmail.org
temp-mail.org
temp-mail.io
10minutemail.com
guerrillamail.com
guerrillamail.net
sharklasers.com
trashmail.com
trashmail.net
trashmail.me
trash-mail.com
yopmail.com
maildrop.cc
dispostable.com
fakeinbox.com
throwawaymail.com
mailnesia.com
getairmail.com
mytemp.email
mailcatch.com
mintemail.com
spamgourmet.com
spam4.me
discard.email
getnada.com
tempinbox.com
emailondeck.com
mohmal.com
mailsac.com
inboxkitten.com
33mail.com
burnermail.io
tempmailaddress.com
`)

// commonTypos maps frequent misspellings of major providers to the intended
// domain. An address at a typo domain is advertising noise, not a mailbox.
var commonTypos = map[string]string{
	"gmai.com":    "gmail.com",
	"gmal.com":    "gmail.com",
	"gamil.com":   "gmail.com",
	"gmail.co":    "gmail.com",
	"gmial.com":   "gmail.com",
	"yaho.com":    "yahoo.com",
	"yahooo.com":  "yahoo.com",
	"hotmai.com":  "hotmail.com",
	"hotmial.com": "hotmail.com",
	"outlok.com":  "outlook.com",
	"outloook.com": "outlook.com",
}

func buildDomainSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, d := range strings.Split(list, "\n") {
		if d = strings.TrimSpace(d); d != "" {
			set[d] = true
		}
	}
	return set
}

func isDisposable(domain string) bool {
	if disposableDomains[domain] {
		return true
	}
	// Subdomains of a disposable provider are just as disposable.
	for d := range disposableDomains {
		if strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
