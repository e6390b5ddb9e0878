package gelbeseiten

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DecodeWebsite decodes the base64 website attribute and only accepts the
// result if it is an http(s) url.
func DecodeWebsite(encoded string) (string, bool) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return "", false
		}
	}
	if !utf8.Valid(raw) {
		return "", false
	}

	decoded := strings.TrimSpace(string(raw))
	if !hasHttpScheme(decoded) {
		return "", false
	}
	return decoded, true
}

func hasHttpScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Probe decodes `raw` as json and walks down the given object keys.
// Any decode error or missing key yields false, never an error.
func Probe(raw string, path ...string) (any, bool) {
	var current any
	err := json.Unmarshal([]byte(raw), &current)
	if err != nil {
		return nil, false
	}
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// ProbeString is Probe but the value at the end of the path must be a
// non-empty string.
func ProbeString(raw string, path ...string) (string, bool) {
	value, ok := Probe(raw, path...)
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	if !ok {
		return "", false
	}
	str = strings.TrimSpace(str)
	return str, str != ""
}

var chatEmailPath = []string{"inboxConfig", "organizationQuery", "generic", "email"}

// SplitCityLine splits "20354 Hamburg" into its postal code and city.
//
// A line without any whitespace is assigned to the postal code in full and
// the city is left empty.
func SplitCityLine(line string) (postalCode, city string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx:])
}

// StreetLine returns the part of the full address text before the city
// line with trailing separators removed.
func StreetLine(fullText, cityLine string) string {
	street := fullText
	if cityLine != "" {
		idx := strings.Index(fullText, cityLine)
		if idx >= 0 {
			street = fullText[:idx]
		}
	}
	return strings.TrimSpace(strings.TrimRight(street, ", "))
}

func isPlaceholderLogo(src string) bool {
	return src == "" ||
		src == "1px" ||
		strings.Contains(src, "pixel.png") ||
		strings.HasPrefix(src, "data:")
}

// NormalizeLogo rejects placeholder images and makes the logo url absolute
// where it can tell how. Anything that is neither absolute nor rooted is
// returned as is.
func NormalizeLogo(src string, base *url.URL) (string, bool) {
	src = strings.TrimSpace(src)
	if isPlaceholderLogo(src) {
		return "", false
	}
	switch {
	case strings.HasPrefix(src, "http"):
		return src, true
	case strings.HasPrefix(src, "//"):
		return "https:" + src, true
	case strings.HasPrefix(src, "/"):
		return origin(base) + src, true
	}
	return src, true
}

// ResolveLink resolves an href found on the page against the site's origin.
func ResolveLink(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return origin(base) + href
	}
	return base.ResolveReference(ref).String()
}

func origin(base *url.URL) string {
	if base == nil {
		return ""
	}
	return base.Scheme + "://" + base.Host
}

var digitsRegex = regexp.MustCompile(`\d+`)

// ReviewCount pulls the first run of digits out of text like "122 Bewertungen".
func ReviewCount(text string) string {
	return digitsRegex.FindString(text)
}
