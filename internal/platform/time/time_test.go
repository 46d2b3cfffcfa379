package time

import (
	"context"
	"testing"
	"time"
)

func TestStampRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 15, 9, 45, 0, 0, time.UTC)
	s := Stamp(in)
	if s != "20240315094500" {
		t.Fatalf("Stamp = %q", s)
	}
	out, err := ParseStamp(s)
	if err != nil {
		t.Fatalf("ParseStamp: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip: %v != %v", out, in)
	}
}

func TestStampNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*3600)
	in := time.Date(2024, 3, 15, 11, 45, 0, 0, loc) // 09:45 UTC
	if got := Stamp(in); got != "20240315094500" {
		t.Errorf("Stamp in zone = %q", got)
	}
}

func TestStampOrderIsChronological(t *testing.T) {
	a := Stamp(time.Date(2024, 3, 15, 9, 45, 0, 0, time.UTC))
	b := Stamp(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	if !(a < b) {
		t.Errorf("lexical order broken: %q >= %q", a, b)
	}
}

func TestParseStampRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "2024", "20241301000000", "january"} {
		if _, err := ParseStamp(s); err == nil {
			t.Errorf("ParseStamp(%q) should fail", s)
		}
	}
}

func TestBucket(t *testing.T) {
	in := time.Date(2024, 3, 15, 9, 47, 12, 0, time.UTC)
	if got := Bucket(in, time.Hour); !got.Equal(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("hour bucket = %v", got)
	}
	if got := Bucket(in, 15*time.Minute); !got.Equal(time.Date(2024, 3, 15, 9, 45, 0, 0, time.UTC)) {
		t.Errorf("quarter bucket = %v", got)
	}
}

func TestBucketsBetween(t *testing.T) {
	first := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		last time.Time
		want int
	}{
		{first, 1},
		{first.Add(time.Hour), 2},
		{first.Add(23 * time.Hour), 24},
		{first.Add(-time.Hour), 0},
	}
	for _, c := range cases {
		if got := BucketsBetween(first, c.last, time.Hour); got != c.want {
			t.Errorf("BucketsBetween(..%v) = %d, want %d", c.last, got, c.want)
		}
	}
	if BucketsBetween(first, first, 0) != 0 {
		t.Error("zero width must yield 0")
	}
}

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err != context.Canceled {
		t.Errorf("Sleep on cancelled ctx = %v", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}
}
