package transform

// NoReason is the placeholder filled in when a row carries no usable reason.
const NoReason = "(No Reason)"

// CanonicalRecord is the normalized five-field form of one call-log row.
type CanonicalRecord struct {
	NumberCalled string `json:"numberCalled"`
	Quantity     int    `json:"quantity"`
	WhoCalled    string `json:"whoCalled"`
	Reason       string `json:"reason"`
	Itin         string `json:"itin,omitempty"`
}

// NormalizeRow maps one raw row onto a CanonicalRecord. It is total: absent
// or malformed cells degrade to empty/placeholder fields, never an error.
//
// Quantity policy is bounded-count-with-fallback-to-zero: the quantity column
// is tried first, then the who-called column (counts occasionally land there),
// and a row with no parsable count gets zero. A value that parses as a count
// is never also accepted as a caller name.
func NormalizeRow(raw RawRecord) CanonicalRecord {
	number := ExpandScientific(CleanValue(resolveValue(raw, FieldNumber)))

	quantity := 0
	if n, ok := ParseBoundedCount(resolveValue(raw, FieldQuantity)); ok {
		quantity = n
	} else if n, ok := ParseBoundedCount(resolveValue(raw, FieldWho)); ok {
		quantity = n
	}

	who := CleanValue(resolveValue(raw, FieldWho))
	if _, ok := ParseBoundedCount(who); ok {
		who = ""
	}

	reason := CleanValue(resolveValue(raw, FieldReason))
	if reason == "" && who != "" {
		reason = Capitalize(who)
	}
	if reason == "" {
		reason = NoReason
	}

	return CanonicalRecord{
		NumberCalled: number,
		Quantity:     quantity,
		WhoCalled:    who,
		Reason:       reason,
		Itin:         CleanValue(resolveValue(raw, FieldItin)),
	}
}

// HasSignal reports whether a normalized row carries anything worth keeping.
// A row with no number, zero quantity, and only the placeholder reason is
// noise from trailing sheet rows.
func HasSignal(r CanonicalRecord) bool {
	return r.NumberCalled != "" || r.Quantity > 0 || (r.Reason != "" && r.Reason != NoReason)
}

// NormalizeBatch normalizes a raw batch and drops the rows with no signal.
func NormalizeBatch(raws []RawRecord) []CanonicalRecord {
	out := make([]CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		rec := NormalizeRow(raw)
		if HasSignal(rec) {
			out = append(out, rec)
		}
	}
	return out
}
