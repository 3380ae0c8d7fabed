package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2026-03-01T08:15:00Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeInvalid(t *testing.T) {
    if _, ok := ParseTime("not-a-time"); ok {
        t.Fatalf("expected not ok")
    }
    if _, ok := ParseTime(""); ok {
        t.Fatalf("expected not ok for empty")
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}
