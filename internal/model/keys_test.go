package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPositionIDRoundTrip(t *testing.T) {
	id := PositionID{Fund: "0x00000000000000000000000000000000000000AB", PoolIndex: 2, PositionIndex: 7}

	key := id.String()
	if key != "0x00000000000000000000000000000000000000ab-2-7" {
		t.Fatalf("key = %s", key)
	}

	parsed, err := ParsePositionID(key)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.Fund != "0x00000000000000000000000000000000000000ab" || parsed.PoolIndex != 2 || parsed.PositionIndex != 7 {
		t.Fatalf("round-trip mismatch: %+v", parsed)
	}
}

func TestParsePositionIDRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "0xab", "0xab-1", "0xab-x-1", "0xab-1-y"} {
		if _, err := ParsePositionID(key); err == nil {
			t.Fatalf("expected error for %q", key)
		}
	}
}

func TestInvestorIDLowercases(t *testing.T) {
	got := InvestorID("0xAB", "0xCD")
	if got != "0xab-0xcd" {
		t.Fatalf("investor id = %s", got)
	}
}

func TestPackPositionKeyLayout(t *testing.T) {
	fund := common.HexToAddress("0x1111111111111111111111111111111111111111")

	preimage := PackPositionKey(fund, -600, 600)
	if len(preimage) != 26 {
		t.Fatalf("preimage length = %d, want 26", len(preimage))
	}

	gotFund, lower, upper, err := UnpackPositionKey(preimage)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if gotFund != fund {
		t.Fatalf("fund = %s, want %s", gotFund.Hex(), fund.Hex())
	}
	if lower != -600 || upper != 600 {
		t.Fatalf("ticks = (%d, %d), want (-600, 600)", lower, upper)
	}
}

func TestPackPositionKeyNegativeTickBounds(t *testing.T) {
	fund := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// int24 extremes must survive the 3-byte packing.
	preimage := PackPositionKey(fund, -8388608, 8388607)
	_, lower, upper, err := UnpackPositionKey(preimage)
	if err != nil {
		t.Fatalf("unpack failed: %v", err)
	}
	if lower != -8388608 || upper != 8388607 {
		t.Fatalf("ticks = (%d, %d), want int24 extremes", lower, upper)
	}
}

func TestUnpackPositionKeyRejectsBadLength(t *testing.T) {
	if _, _, _, err := UnpackPositionKey(make([]byte, 25)); err == nil {
		t.Fatal("expected error for short preimage")
	}
}

func TestPositionKeyDiffersByRange(t *testing.T) {
	fund := common.HexToAddress("0x3333333333333333333333333333333333333333")

	a := PositionKey(fund, -600, 600)
	b := PositionKey(fund, -600, 1200)
	if a == b {
		t.Fatal("distinct ranges must hash to distinct keys")
	}
}
