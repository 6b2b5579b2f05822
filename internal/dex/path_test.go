package dex

import (
	"testing"

	"fundScope/internal/model"
)

func TestPathRoundTrip(t *testing.T) {
	pools := []model.PathPool{
		{
			TokenIn:  "0x1111111111111111111111111111111111111111",
			Fee:      3000,
			TokenOut: "0x2222222222222222222222222222222222222222",
		},
		{
			TokenIn:  "0x2222222222222222222222222222222222222222",
			Fee:      500,
			TokenOut: "0x3333333333333333333333333333333333333333",
		},
	}

	raw, err := EncodePath(pools)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(raw) != 20+2*23 {
		t.Fatalf("encoded length = %d, want 66", len(raw))
	}

	decoded, err := DecodePath(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d hops, want 2", len(decoded))
	}
	for i := range pools {
		if decoded[i] != pools[i] {
			t.Fatalf("hop %d mismatch: %+v != %+v", i, decoded[i], pools[i])
		}
	}
}

func TestDecodePathRejectsShortInput(t *testing.T) {
	if _, err := DecodePath(make([]byte, 42)); err == nil {
		t.Fatal("expected error for short path")
	}
}

func TestDecodePathRejectsMisalignedInput(t *testing.T) {
	if _, err := DecodePath(make([]byte, 44)); err == nil {
		t.Fatal("expected error for misaligned path length")
	}
}

func TestEncodePathRejectsBrokenChain(t *testing.T) {
	pools := []model.PathPool{
		{
			TokenIn:  "0x1111111111111111111111111111111111111111",
			Fee:      3000,
			TokenOut: "0x2222222222222222222222222222222222222222",
		},
		{
			TokenIn:  "0x9999999999999999999999999999999999999999",
			Fee:      500,
			TokenOut: "0x3333333333333333333333333333333333333333",
		},
	}
	if _, err := EncodePath(pools); err == nil {
		t.Fatal("expected error for broken hop chain")
	}
}

func TestEncodePathRejectsEmpty(t *testing.T) {
	if _, err := EncodePath(nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
