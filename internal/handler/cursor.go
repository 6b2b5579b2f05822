package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// cursorRecord is the on-disk resume state. The controller address binds the
// file to one deployment so a leftover file from another configuration cannot
// make the runner skip blocks.
type cursorRecord struct {
	Controller       string    `json:"controller"`
	LastHandledBlock uint64    `json:"last_handled_block"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Cursor persists the runner's progress to a file. A disabled cursor never
// resumes and never writes.
type Cursor struct {
	path       string
	controller string
	enabled    bool
}

func NewCursor(path string, enabled bool, controller common.Address) *Cursor {
	return &Cursor{
		path:       path,
		controller: strings.ToLower(controller.Hex()),
		enabled:    enabled,
	}
}

// Resume returns the last handled block recorded for this deployment. ok is
// false when there is nothing to resume from, including when the file was
// written for a different controller.
func (c *Cursor) Resume() (uint64, bool, error) {
	if !c.enabled {
		return 0, false, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read cursor: %w", err)
	}

	var rec cursorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse cursor: %w", err)
	}
	if !strings.EqualFold(rec.Controller, c.controller) {
		return 0, false, nil
	}
	return rec.LastHandledBlock, true, nil
}

// Advance records lastHandled. The write goes through a temp file so a crash
// mid-write leaves the previous record intact.
func (c *Cursor) Advance(lastHandled uint64) error {
	if !c.enabled {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}

	data, err := json.Marshal(cursorRecord{
		Controller:       c.controller,
		LastHandledBlock: lastHandled,
		UpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}
