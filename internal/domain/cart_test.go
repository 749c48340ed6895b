package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewCartSnapshot_MergesAndSorts(t *testing.T) {
	snap, err := NewCartSnapshot("u1", []LineItem{
		{ProductID: "B", Quantity: 1},
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 3},
		{ProductID: "C", Quantity: 0},
		{ProductID: "", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snap.Lines))
	}
	if snap.Lines[0].ProductID != "A" || snap.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected first line: %+v", snap.Lines[0])
	}
	if snap.Lines[1].ProductID != "B" || snap.Lines[1].Quantity != 4 {
		t.Fatalf("duplicates not merged: %+v", snap.Lines[1])
	}
}

func TestNewCartSnapshot_Empty(t *testing.T) {
	if _, err := NewCartSnapshot("u1", nil); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if _, err := NewCartSnapshot("u1", []LineItem{{ProductID: "A", Quantity: -1}}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart for invalid lines, got %v", err)
	}
}

func TestDeriveIdempotencyKey(t *testing.T) {
	snap, err := NewCartSnapshot("u1", []LineItem{{ProductID: "A", Quantity: 2}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	at := time.Unix(1_700_000_000, 0)
	bucket := 5 * time.Minute

	key := snap.DeriveIdempotencyKey(at, bucket)
	if key == "" {
		t.Fatal("empty key")
	}
	if got := snap.DeriveIdempotencyKey(at.Add(time.Second), bucket); got != key {
		t.Fatal("same cart in same bucket must derive the same key")
	}
	if got := snap.DeriveIdempotencyKey(at.Add(bucket+time.Second), bucket); got == key {
		t.Fatal("different bucket must derive a different key")
	}

	other, err := NewCartSnapshot("u1", []LineItem{{ProductID: "A", Quantity: 3}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got := other.DeriveIdempotencyKey(at, bucket); got == key {
		t.Fatal("different cart must derive a different key")
	}
}

func TestOrderDetails_LegacyFormat(t *testing.T) {
	o := Order{
		Lines: []OrderLine{
			{ProductID: "A", Title: "Book A", Quantity: 2, UnitPriceCents: 1000, TotalCents: 2000},
			{ProductID: "B", Quantity: 1, UnitPriceCents: 2550, TotalCents: 2550},
		},
		TotalCents: 4550,
	}
	got := o.Details()
	want := "Customer bought these Items:  Product: Book A, Quantity: 2; Product: B, Quantity: 1; Order Total is : 45.50"
	if got != want {
		t.Fatalf("details mismatch:\n got %q\nwant %q", got, want)
	}
}
