package store

import (
	"encoding/hex"
	"testing"
	"time"

	"antroute/internal/model"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"run.completed"}`)
	got := computeDedupKey(body)
	if got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"notId":"x"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

func TestRoutesJSON(t *testing.T) {
	if v, err := routesJSON(nil); err != nil || v != nil {
		t.Fatalf("nil routes -> NULL expected, got %v %v", v, err)
	}
	v, err := routesJSON([]model.RouteOut{{Index: 1, Stops: []int{0, 3, 0}, Load: 4, Length: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := v.(string); !ok || s != `[{"index":1,"stops":[0,3,0],"load":4,"length":10}]` {
		t.Fatalf("unexpected encoding: %v", v)
	}
}

func TestNullTime(t *testing.T) {
	if nullTime("") != nil || nullTime("yesterday") != nil {
		t.Fatalf("empty or malformed timestamps must map to NULL")
	}
	got, ok := nullTime("2024-03-01T10:00:00Z").(time.Time)
	if !ok || got.Year() != 2024 {
		t.Fatalf("unexpected %v", got)
	}
}
