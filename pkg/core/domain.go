// Snapshot is the central entity of the domain.
package core

import (
	"fmt"
	"time"
)

// Stage identifies one of the three immutable lifecycle stages of a deal.
// The string value doubles as the filename suffix tag.
type Stage string

const (
	// StageBase is the first snapshot of an accepted quote.
	StageBase Stage = "base"
	// StageAdjusted is the report-stage adjustment of a BASE snapshot.
	StageAdjusted Stage = "rpt"
	// StageFinal is the invoice-ready snapshot.
	StageFinal Stage = "final"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageBase, StageAdjusted, StageFinal:
		return true
	}
	return false
}

// Chained reports whether documents of this stage carry a parent hash.
func (s Stage) Chained() bool {
	return s == StageAdjusted || s == StageFinal
}

// Parent returns the stage whose store holds the parent document.
func (s Stage) Parent() Stage {
	switch s {
	case StageAdjusted:
		return StageBase
	case StageFinal:
		return StageAdjusted
	}
	return ""
}

// LineItem is a single priced line within a deal payload.
type LineItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxRate     float64 `json:"taxRate"`
}

// Payload is the domain document a snapshot captures: line items plus
// the declared totals. Its canonical serialization is what gets hashed.
type Payload struct {
	Currency string     `json:"currency"`
	Lines    []LineItem `json:"lines"`
	Subtotal float64    `json:"subtotal"`
	TaxTotal float64    `json:"taxTotal"`
	Total    float64    `json:"total"`
}

// Snapshot is the persisted envelope around a payload. Once written it is
// never mutated; corrections always produce a new hash-distinct snapshot.
type Snapshot struct {
	DealID     string    `json:"dealId"`
	BookingID  string    `json:"bookingId,omitempty"`
	Number     string    `json:"number,omitempty"`
	Currency   string    `json:"currency"`
	StageTag   Stage     `json:"stageTag"`
	ParentHash string    `json:"parentHash,omitempty"`
	Hash       string    `json:"hash"`
	At         time.Time `json:"at"`
	Version    int       `json:"version"`
	Payload    Payload   `json:"payload"`
}

// Provenance is the full three-hash chain behind a rendered artifact.
type Provenance struct {
	BaseHash     string `json:"baseHash"`
	AdjustedHash string `json:"adjustedHash"`
	FinalHash    string `json:"finalHash"`
}

// Diagnostic reports a non-fatal problem found while scanning a store,
// typically a stored file that failed to parse.
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// EventType represents the type of change observed in a stage store.
type EventType string

const (
	EventSnapshot EventType = "SNAPSHOT"
)

// Event represents a newly landed snapshot file in a stage store.
type Event struct {
	Type      EventType
	Stage     Stage
	Path      string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer (and the lifecycle event contract).
func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Stage, e.Path)
}
