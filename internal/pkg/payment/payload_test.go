package payment

import (
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"invoice.paid","data":{"object":{"id":"in_1"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != EventInvoicePaid {
		t.Fatalf("type = %q, want %q", env.Type, EventInvoicePaid)
	}
	if string(env.Data.Object) != `{"id":"in_1"}` {
		t.Fatalf("unexpected inner object %s", env.Data.Object)
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{"type":`},
		{name: "missing type", payload: `{"data":{"object":{"id":"in_1"}}}`},
		{name: "missing object", payload: `{"type":"invoice.paid","data":{}}`},
	}

	for _, tt := range tests {
		_, err := ParseEnvelope([]byte(tt.payload))
		var malformedErr *MalformedEventError
		if !errors.As(err, &malformedErr) {
			t.Fatalf("%s: error = %v, want MalformedEventError", tt.name, err)
		}
	}
}

func TestParseSessionCompleted(t *testing.T) {
	session, err := parseSessionCompleted([]byte(`{
		"id": "cs_test_1",
		"customer": "cus_abc",
		"payment_status": "paid",
		"mode": "payment"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_test_1" || session.Customer != "cus_abc" {
		t.Fatalf("unexpected session %+v", session)
	}

	// An unknown payment_status must fail closed.
	if _, err := parseSessionCompleted([]byte(`{
		"id": "cs_test_1",
		"customer": "cus_abc",
		"payment_status": "maybe",
		"mode": "payment"
	}`)); err == nil {
		t.Fatal("expected validation failure for unknown payment_status")
	}
}

func TestParseInvoicePaidRequiresCustomer(t *testing.T) {
	_, err := parseInvoicePaid([]byte(`{"id":"in_1","period_start":1700000000}`))
	var malformedErr *MalformedEventError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("error = %v, want MalformedEventError", err)
	}
}

func TestItemListPriceID(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    string
		wantErr bool
	}{
		{
			name: "subscription item price id",
			json: `{"data":[{"price":{"id":"price_123"}}]}`,
			want: "price_123",
		},
		{
			name: "invoice line pricing details",
			json: `{"data":[{"pricing":{"price_details":{"price":"price_456"}}}]}`,
			want: "price_456",
		},
		{name: "empty list", json: `{"data":[]}`, wantErr: true},
		{
			name:    "multiple items",
			json:    `{"data":[{"price":{"id":"a"}},{"price":{"id":"b"}}]}`,
			wantErr: true,
		},
		{name: "item without price", json: `{"data":[{}]}`, wantErr: true},
	}

	for _, tt := range tests {
		var list ItemList
		if err := decodeObject([]byte(tt.json), &list); err != nil {
			t.Fatalf("%s: decode failed: %v", tt.name, err)
		}
		got, err := list.PriceID()
		if tt.wantErr {
			var malformedErr *MalformedEventError
			if !errors.As(err, &malformedErr) {
				t.Fatalf("%s: error = %v, want MalformedEventError", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: price id = %q, want %q", tt.name, got, tt.want)
		}
	}
}
