package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fundScope/internal/model"
)

func TestAuditLogAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "audit.jsonl")
	log := NewAuditLog(path)

	first := model.TxRecord{
		Kind:        "deposit",
		TxHash:      "0x01",
		BlockNumber: 100,
		Fund:        "0xf0",
		Owner:       "0xaa",
		Amount:      decimal.NewFromInt(500),
	}
	second := model.TxRecord{
		Kind:        "withdraw",
		TxHash:      "0x02",
		BlockNumber: 110,
		Fund:        "0xf0",
		Owner:       "0xaa",
		Amount:      decimal.NewFromInt(300),
	}

	if err := log.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var records []model.TxRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record model.TxRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != "deposit" || records[1].Kind != "withdraw" {
		t.Fatalf("kinds = %q, %q", records[0].Kind, records[1].Kind)
	}
	if !records[1].Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("amount = %s, want 300", records[1].Amount)
	}
}
