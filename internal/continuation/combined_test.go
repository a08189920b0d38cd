package continuation

import "testing"

func TestParseIsTotal(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-base64!!", "bm90IGpzb24", "W10"} {
		c := Parse(raw)
		if c == nil {
			t.Fatalf("Parse(%q) returned nil", raw)
		}
		if len(c) != 0 {
			t.Fatalf("Parse(%q) = %v, want empty", raw, c)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	c := Combined{}
	c.Set("ETHEREUM", "1717171717000_0xabc:42")
	c.Set("POLYGON", "99_7")
	c.SetCompleted("FLOW")

	got := Parse(c.Format())
	if len(got) != 3 {
		t.Fatalf("round trip lost entries: %v", got)
	}
	if v, ok := got.Get("ETHEREUM"); !ok || v != "1717171717000_0xabc:42" {
		t.Fatalf("ETHEREUM = %q ok=%v", v, ok)
	}
	if !got.IsCompleted("FLOW") {
		t.Fatalf("FLOW lost its completion sentinel")
	}
	if got.IsCompleted("POLYGON") {
		t.Fatalf("POLYGON wrongly completed")
	}
}

func TestEmptyFormats(t *testing.T) {
	if s := (Combined{}).Format(); s != "" {
		t.Fatalf("empty cursor formatted to %q", s)
	}
	if c := Parse(""); len(c) != 0 {
		t.Fatalf("parse of empty token: %v", c)
	}
}

func TestGetDistinguishesStates(t *testing.T) {
	c := Combined{}
	c.SetCompleted("ETHEREUM")

	// Completed is not "has a continuation".
	if _, ok := c.Get("ETHEREUM"); ok {
		t.Fatalf("completed source reported a continuation")
	}
	// Absent is not completed.
	if c.IsCompleted("POLYGON") {
		t.Fatalf("unstarted source reported completed")
	}
	if _, ok := c.Get("POLYGON"); ok {
		t.Fatalf("unstarted source reported a continuation")
	}
}

func TestSentinelIdempotentAcrossCycles(t *testing.T) {
	c := Combined{}
	c.SetCompleted("TEZOS")
	c.Set("SOLANA", "5_s1")

	for i := 0; i < 3; i++ {
		c = Parse(c.Format())
	}
	if !c.IsCompleted("TEZOS") {
		t.Fatalf("sentinel not preserved across cycles")
	}
	if v, _ := c.Get("SOLANA"); v != "5_s1" {
		t.Fatalf("continuation not preserved: %q", v)
	}
}

func TestAllCompleted(t *testing.T) {
	c := Combined{}
	if c.AllCompleted() {
		t.Fatalf("empty cursor must not be all-completed")
	}
	c.SetCompleted("ETHEREUM")
	if !c.AllCompleted() {
		t.Fatalf("want all-completed")
	}
	c.Set("POLYGON", "1_a")
	if c.AllCompleted() {
		t.Fatalf("live source ignored")
	}
}
