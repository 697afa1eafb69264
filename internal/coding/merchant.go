package coding

import (
	"regexp"
	"strings"

	"github.com/meridian-cg/coding-portal/internal/model"
)

// Merchant keys group transactions from the same vendor so coding can be
// copied between them. Extraction is a pure function of the description.

const (
	merchantMaxLen  = 50
	fallbackMaxLen  = 30
	keywordWindow   = 5
	shortSegmentMax = 5
)

var (
	reRefToken = regexp.MustCompile(`REF#\s*\S+\s*`)

	// leading merchant name, optionally terminated by a MM/DD/YY date
	reLeadingDated = regexp.MustCompile(`^([A-Z][A-Za-z0-9&.\-]*(?:\s+[A-Z][A-Za-z0-9&.\-]*)*?)\s+\d{2}/\d{2}/\d{2}\b`)
	reLeadingBare  = regexp.MustCompile(`^([A-Z][A-Za-z0-9&.\-]*(?:\s+[A-Z][A-Za-z0-9&.\-]*)*)$`)

	// folio and rental-agreement charge formats
	reFolio  = regexp.MustCompile(`FOL#\S+\s+(.+?)\s+\d{2}/\d{2}/\d{2}\b`)
	reRental = regexp.MustCompile(`R/A#\S+\s+(.+?)\s+\d{2}/\d{2}/\d{2}\b`)

	// leading numeric reference codes followed by pipe-delimited fields
	reNumericPipe = regexp.MustCompile(`^\s*\d[\d\s\-]*\|\s*([^|]+)`)

	reBareNumber = regexp.MustCompile(`^\d+`)
	reLetter     = regexp.MustCompile(`[A-Za-z]`)
)

var merchantKeywords = map[string]struct{}{
	"HOTEL": {}, "RESTAURANT": {}, "RENTAL": {}, "STORE": {}, "MARKET": {},
	"AIRLINE": {}, "AIRLINES": {}, "AIRWAY": {}, "AIRWAYS": {},
	"CAR": {}, "GAS": {}, "FUEL": {}, "HARDWARE": {}, "EQUIPMENT": {},
	"SUPPLIES": {}, "SERVICE": {}, "SERVICES": {},
	"INC": {}, "LLC": {}, "CORP": {}, "CO.": {}, "COMPANY": {},
}

// ExtractMerchantKey derives a stable grouping key from a free-text
// transaction description. Rules run against the description with REF#
// tokens stripped first, then against the raw description.
func ExtractMerchantKey(description string) string {
	cleaned := strings.TrimSpace(reRefToken.ReplaceAllString(description, ""))
	raw := strings.TrimSpace(description)

	if key, ok := extractByRules(cleaned); ok {
		return key
	}
	if key, ok := extractByRules(raw); ok {
		return key
	}
	if len(cleaned) > fallbackMaxLen {
		return cleaned[:fallbackMaxLen] + "..."
	}
	return cleaned
}

func extractByRules(desc string) (string, bool) {
	if desc == "" {
		return "", false
	}

	if m := reLeadingDated.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := reLeadingBare.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := reFolio.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := reRental.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := reNumericPipe.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	segments := splitSegments(desc)

	// short segments carrying a category keyword are taken whole
	for _, seg := range segments {
		words := strings.Fields(seg)
		if len(words) > shortSegmentMax {
			continue
		}
		if keywordIndex(words) >= 0 {
			return seg, true
		}
	}

	// longer segments yield a window centered on the keyword
	for _, seg := range segments {
		words := strings.Fields(seg)
		idx := keywordIndex(words)
		if idx < 0 {
			continue
		}
		start := idx - keywordWindow/2
		if start < 0 {
			start = 0
		}
		end := start + keywordWindow
		if end > len(words) {
			end = len(words)
		}
		return strings.Join(words[start:end], " "), true
	}

	for _, seg := range segments {
		if usableSegment(seg) {
			if len(seg) > merchantMaxLen {
				seg = seg[:merchantMaxLen]
			}
			return strings.TrimSpace(seg), true
		}
	}

	return "", false
}

func splitSegments(desc string) []string {
	parts := strings.Split(desc, "|")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func keywordIndex(words []string) int {
	for i, w := range words {
		w = strings.ToUpper(strings.Trim(w, ","))
		if w != "CO." {
			w = strings.TrimSuffix(w, ".")
		}
		if _, ok := merchantKeywords[w]; ok {
			return i
		}
	}
	return -1
}

func usableSegment(seg string) bool {
	if len(seg) <= 3 {
		return false
	}
	upper := strings.ToUpper(seg)
	for _, prefix := range []string{"REF#", "FOL#", "R/A#"} {
		if strings.HasPrefix(upper, prefix) {
			return false
		}
	}
	if reBareNumber.MatchString(seg) {
		return false
	}
	// purely numeric/punctuation segments carry no merchant signal
	return reLetter.MatchString(seg)
}

// FindPreviousCoding scans the loaded transactions for the first one that
// shares the merchant key and already carries a usable assignment. Used for
// the "copy coding from previous" suggestion.
func FindPreviousCoding(transactions []*model.Transaction, merchantKey string) *model.CodingAssignment {
	if merchantKey == "" {
		return nil
	}
	for _, tx := range transactions {
		if tx.Status == model.TransactionStatusUncoded || tx.Coding == nil {
			continue
		}
		if keyFor(tx) == merchantKey && tx.Coding.Populated() {
			return tx.Coding
		}
	}
	return nil
}

// MatchingIDs returns the ids of every loaded transaction sharing the
// merchant key, for "select all from this merchant".
func MatchingIDs(transactions []*model.Transaction, merchantKey string) []int64 {
	var ids []int64
	for _, tx := range transactions {
		if keyFor(tx) == merchantKey {
			ids = append(ids, tx.ID)
		}
	}
	return ids
}

func keyFor(tx *model.Transaction) string {
	if tx.MerchantKey != "" {
		return tx.MerchantKey
	}
	return ExtractMerchantKey(tx.Description)
}
