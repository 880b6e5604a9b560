package storage

import (
	"time"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// RepairRow is one journaled repair attempt.
type RepairRow struct {
	ID        int64              `json:"id"`
	SessionID string             `json:"session_id"`
	At        time.Time          `json:"at"`
	Rule      string             `json:"rule"`
	Message   string             `json:"message"`
	Action    *repair.Action     `json:"action,omitempty"`
	Outcome   validation.Outcome `json:"outcome"`
	Error     string             `json:"error,omitempty"`
}
