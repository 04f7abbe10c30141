package leads

import "time"

// DefaultQuotation picks the quotation a detail view opens with: the most recent submitted
// quotation, else the first element. Recency is created_at, then the higher quotation id.
func DefaultQuotation(quotations []RawQuotation) (RawQuotation, bool) {
	if len(quotations) == 0 {
		return RawQuotation{}, false
	}
	best := -1
	var bestAt time.Time
	var bestParsed bool
	for i, q := range quotations {
		if q.Details.Status != QuotationSubmitted {
			continue
		}
		at, parsed := ParseTimestamp(q.Details.CreatedAt)
		if best < 0 || newerThan(at, parsed, q.Details.ID, bestAt, bestParsed, quotations[best].Details.ID) {
			best, bestAt, bestParsed = i, at, parsed
		}
	}
	if best >= 0 {
		return quotations[best], true
	}
	return quotations[0], true
}

// FindQuotation returns the quotation with the given id.
func FindQuotation(quotations []RawQuotation, id int) (RawQuotation, bool) {
	for _, q := range quotations {
		if q.Details.ID == id {
			return q, true
		}
	}
	return RawQuotation{}, false
}

func newerThan(at time.Time, parsed bool, id int, bestAt time.Time, bestParsed bool, bestID int) bool {
	switch {
	case parsed && !bestParsed:
		return true
	case !parsed && bestParsed:
		return false
	case parsed && bestParsed && !at.Equal(bestAt):
		return at.After(bestAt)
	default:
		return id > bestID
	}
}
