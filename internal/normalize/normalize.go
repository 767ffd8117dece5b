package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// trackingParams are query parameters stripped during URL canonicalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"spm":          true,
	"source":       true,
}

// CanonicalURL lowercases the scheme and host, drops the fragment, and
// strips tracking parameters. Two URLs differing only in these features
// canonicalize identically. Idempotent; malformed URLs are returned
// trimmed but otherwise unchanged.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for param := range q {
			if trackingParams[strings.ToLower(param)] {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ItemID returns the stable item identifier: md5 of the canonical URL.
func ItemID(rawURL string) string {
	sum := md5.Sum([]byte(CanonicalURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

// HanRatio returns the fraction of runes in s that are Han characters.
func HanRatio(s string) float64 {
	if s == "" {
		return 0
	}
	total, han := 0, 0
	for _, r := range s {
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(han) / float64(total)
}

// DetectLanguage classifies text as zh when at least 30% of its runes are
// Han characters, en otherwise.
func DetectLanguage(s string) string {
	if HanRatio(s) >= 0.3 {
		return "zh"
	}
	return "en"
}

// mojibakeMarkers are byte sequences characteristic of UTF-8 text that
// was decoded as Latin-1 (e.g. "Ã©" for "é", "â€œ" for a curly quote).
var mojibakeMarkers = []string{"Ã", "â€", "å", "æ", "ç", "è", "é"}

// FixMojibake repairs text whose UTF-8 bytes were mis-decoded as Latin-1.
// Text without the characteristic marker runes passes through unchanged,
// which makes the repair idempotent.
func FixMojibake(s string) string {
	if s == "" {
		return s
	}
	suspicious := false
	for _, m := range mojibakeMarkers {
		if strings.Contains(s, m) {
			suspicious = true
			break
		}
	}
	if !suspicious {
		return s
	}

	// Re-encode each rune as its Latin-1 byte; any rune above 0xFF means
	// the text was not a Latin-1 mis-decode in the first place.
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		buf = append(buf, byte(r))
	}
	repaired := string(buf)
	if !utf8.ValidString(repaired) {
		return s
	}
	return repaired
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"January 2, 2006",
	"2 January 2006",
}

// ParseTime parses a timestamp string into UTC. Naive timestamps are
// assumed UTC. Returns nil when the string is empty or unparseable.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// shanghai is the display timezone. All internal timestamps stay UTC.
var shanghai = time.FixedZone("CST", 8*60*60)

// ToShanghai converts a timestamp to Asia/Shanghai for display.
func ToShanghai(t time.Time) time.Time {
	return t.In(shanghai)
}

// NowShanghai returns the current wall time in Asia/Shanghai.
func NowShanghai() time.Time {
	return time.Now().In(shanghai)
}

// ReportDate formats a timestamp as the Chinese report date, e.g. "3月7日".
func ReportDate(t time.Time) string {
	local := ToShanghai(t)
	return fmt.Sprintf("%d月%d日", int(local.Month()), local.Day())
}
