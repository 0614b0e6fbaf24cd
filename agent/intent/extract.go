package intent

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:customer|account)\s+(?:id|number|no\.?)\s*[:#=]?\s*(\d{1,12})\b`),
		regexp.MustCompile(`(?i)\bcustomer\s+#?(\d{1,12})\b`),
	}
	bareIDPattern = regexp.MustCompile(`(?i)\b(?:([a-z]+)\s+)?id\s*[:#=]?\s*(\d{1,12})\b`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern  = regexp.MustCompile(`(?i)\bphone(?:\s+number)?\s*(?:to|is|=|:)?\s*(\+?\d[\d\s().\-]{5,}\d)`)
	namePattern   = regexp.MustCompile(`(?i)\bname\s*(?:to|is|=|:)\s*([A-Za-z][A-Za-z .'\-]{0,60}[A-Za-z])`)
	statusPattern = regexp.MustCompile(`(?i)\bstatus\s*(?:to|=|:)\s*(active|disabled)\b`)
	urgentPattern = regexp.MustCompile(`(?i)\b(?:charged\s+(?:twice|two times|double|again|multiple times)|double[\s\-]?charged|duplicate\s+charges?|refund\w*)\b`)
)

// foreignIDNouns name ids that never identify a customer.
var foreignIDNouns = map[string]bool{
	"order": true, "invoice": true, "ticket": true, "transaction": true,
	"payment": true, "subscription": true, "tracking": true, "product": true,
	"reference": true, "session": true,
}

// ExtractCustomerID returns the first customer id written in text. It never
// guesses: text without an explicit number yields false, and ids qualified
// by another noun, such as "order id 7", are ignored.
func ExtractCustomerID(text string) (int64, bool) {
	if id, ok := qualifiedCustomerID(text); ok {
		return id, true
	}
	return bareID(text)
}

// CustomerIDFor picks the customer a request is about. An id qualified as a
// customer or account id beats the hint, and a bare "id N" is only taken
// when there is no hint.
func CustomerIDFor(text string, hint *int64) *int64 {
	if id, ok := qualifiedCustomerID(text); ok {
		return &id
	}
	if hint != nil {
		id := *hint
		return &id
	}
	if id, ok := bareID(text); ok {
		return &id
	}
	return nil
}

func qualifiedCustomerID(text string) (int64, bool) {
	for _, p := range idPatterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func bareID(text string) (int64, bool) {
	for _, m := range bareIDPattern.FindAllStringSubmatch(text, -1) {
		if foreignIDNouns[strings.ToLower(m[1])] {
			continue
		}
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func ExtractEmail(text string) string {
	return strings.TrimRight(emailPattern.FindString(text), ".")
}

// ExtractUpdateFields collects the customer fields a request asks to change.
func ExtractUpdateFields(text string) map[string]string {
	fields := make(map[string]string)
	if email := ExtractEmail(text); email != "" {
		fields["email"] = email
	}
	if m := phonePattern.FindStringSubmatch(text); len(m) == 2 {
		fields["phone"] = strings.TrimSpace(m[1])
	}
	if m := namePattern.FindStringSubmatch(text); len(m) == 2 {
		fields["name"] = strings.TrimSpace(m[1])
	}
	if m := statusPattern.FindStringSubmatch(text); len(m) == 2 {
		fields["status"] = strings.ToLower(m[1])
	}
	return fields
}

// IsUrgent reports repeated-charge or refund phrasing.
func IsUrgent(text string) bool {
	return urgentPattern.MatchString(text)
}
