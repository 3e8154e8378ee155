package transform

import (
	"reflect"
	"testing"
)

func TestNormalizeRowEndToEnd(t *testing.T) {
	raw := RawRecord{
		{Header: "Number Called", Value: "5.27E+11"},
		{Header: "Calls#", Value: "3"},
		{Header: "Who Called", Value: "john"},
		{Header: "Reason", Value: ""},
	}
	got := NormalizeRow(raw)
	want := CanonicalRecord{
		NumberCalled: "527000000000",
		Quantity:     3,
		WhoCalled:    "john",
		Reason:       "John",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestNormalizeRowQuantityFallbackToWho(t *testing.T) {
	raw := RawRecord{
		{Header: "Number Called", Value: "5551234"},
		{Header: "Calls#", Value: "n/a"},
		{Header: "Who Called", Value: "7"},
	}
	got := NormalizeRow(raw)
	if got.Quantity != 7 {
		t.Fatalf("quantity = %d, want fallback from who column", got.Quantity)
	}
	if got.WhoCalled != "" {
		t.Fatalf("whoCalled = %q; a count must not double as a name", got.WhoCalled)
	}
	if got.Reason != NoReason {
		t.Fatalf("reason = %q, want placeholder", got.Reason)
	}
}

func TestNormalizeRowUnparsableQuantityIsZero(t *testing.T) {
	raw := RawRecord{
		{Header: "Number Called", Value: "5551234"},
		{Header: "Calls#", Value: "5615551234"},
		{Header: "Who Called", Value: "expedia"},
	}
	got := NormalizeRow(raw)
	if got.Quantity != 0 {
		t.Fatalf("quantity = %d, want 0 for phone-length value", got.Quantity)
	}
	if got.Reason != "Expedia" {
		t.Fatalf("reason = %q, want capitalized whoCalled fallback", got.Reason)
	}
}

func TestNormalizeRowSentinels(t *testing.T) {
	raw := RawRecord{
		{Header: "Number Called", Value: "#N/A"},
		{Header: "Who Called", Value: "  "},
		{Header: "Reason", Value: "#n/a"},
	}
	got := NormalizeRow(raw)
	if got.NumberCalled != "" || got.WhoCalled != "" {
		t.Fatalf("sentinels not cleared: %+v", got)
	}
	if got.Reason != NoReason {
		t.Fatalf("reason = %q, want placeholder", got.Reason)
	}
}

func TestNormalizeBatchDropsNoSignalRows(t *testing.T) {
	raws := []RawRecord{
		{{Header: "Number Called", Value: ""}, {Header: "Reason", Value: ""}},
		{{Header: "Number Called", Value: "5551234"}, {Header: "Calls#", Value: "2"}},
		{{Header: "Number Called", Value: ""}, {Header: "Reason", Value: "Lost Bag"}},
	}
	got := NormalizeBatch(raws)
	if len(got) != 2 {
		t.Fatalf("kept %d rows, want 2", len(got))
	}
}

func TestHasSignalPlaceholderOnlyIsNoise(t *testing.T) {
	rec := CanonicalRecord{Reason: NoReason}
	if HasSignal(rec) {
		t.Fatal("placeholder-only row should be dropped")
	}
	rec.Quantity = 1
	if !HasSignal(rec) {
		t.Fatal("row with a count should be kept")
	}
}
