// Package audit verifies global hash-chain integrity across the three
// stage stores. The auditor is strictly read-only: it never writes,
// deletes, or repairs, even when it finds broken links. Remediation is a
// separate, human-gated operation.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/obari/ledger/pkg/core"
)

// Finding codes. Stable identifiers consumers can key on.
const (
	CodeAdjustRefBase  = "OBARI_ADJUST_REF_BASE"
	CodeFinalRefAdjust = "OBARI_FINAL_REF_ADJUST"
	CodeCorruptSkipped = "OBARI_CORRUPT_SKIPPED"
)

// Status of a single finding.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Finding is one per-entry integrity assertion result.
type Finding struct {
	Code       string `json:"code"`
	Status     Status `json:"status"`
	DealID     string `json:"dealId,omitempty"`
	Hash       string `json:"hash,omitempty"`
	ParentHash string `json:"parentHash,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Report aggregates the findings of one full-corpus audit run.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Pass        int       `json:"pass"`
	Warn        int       `json:"warn"`
	Fail        int       `json:"fail"`
	Findings    []Finding `json:"findings"`
}

// Auditor walks the three stores and checks every chain link.
type Auditor struct {
	Base     core.StageStore
	Adjusted core.StageStore
	Final    core.StageStore
	Logger   *slog.Logger
}

// Run performs the audit:
//  1. Collect all BASE hashes.
//  2. Collect ADJUSTED hash -> declared BASE parent.
//  3. Collect FINAL hash -> declared ADJUSTED parent.
//  4. Assert every ADJUSTED parent is a known BASE hash of the same deal.
//  5. Assert every FINAL parent is a known ADJUSTED hash of the same deal.
//
// Corrupt files surface as WARN findings and never abort the run.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	baseSnaps, baseDiags, err := a.Base.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan base store: %w", err)
	}
	adjSnaps, adjDiags, err := a.Adjusted.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan adjusted store: %w", err)
	}
	finalSnaps, finalDiags, err := a.Final.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan final store: %w", err)
	}

	for _, diags := range [][]core.Diagnostic{baseDiags, adjDiags, finalDiags} {
		for _, d := range diags {
			report.add(Finding{
				Code:   CodeCorruptSkipped,
				Status: StatusWarn,
				Detail: fmt.Sprintf("%s: %s", d.Path, d.Reason),
			})
		}
	}

	baseByHash := make(map[string]core.Snapshot, len(baseSnaps))
	for _, snap := range baseSnaps {
		baseByHash[snap.Hash] = snap
	}
	adjByHash := make(map[string]core.Snapshot, len(adjSnaps))
	for _, snap := range adjSnaps {
		adjByHash[snap.Hash] = snap
	}

	for _, snap := range adjSnaps {
		report.add(a.checkLink(CodeAdjustRefBase, snap, baseByHash, "base"))
	}
	for _, snap := range finalSnaps {
		report.add(a.checkLink(CodeFinalRefAdjust, snap, adjByHash, "adjusted"))
	}

	if a.Logger != nil {
		a.Logger.Info("audit complete",
			"id", report.ID,
			"pass", report.Pass,
			"warn", report.Warn,
			"fail", report.Fail,
		)
	}

	return report, nil
}

// checkLink asserts that snap's declared parent exists in the upstream
// corpus and belongs to the same deal.
func (a *Auditor) checkLink(code string, snap core.Snapshot, upstream map[string]core.Snapshot, upstreamName string) Finding {
	f := Finding{
		Code:       code,
		DealID:     snap.DealID,
		Hash:       snap.Hash,
		ParentHash: snap.ParentHash,
	}

	parent, ok := upstream[snap.ParentHash]
	switch {
	case !ok:
		f.Status = StatusFail
		f.Detail = fmt.Sprintf("no %s snapshot with hash %s", upstreamName, snap.ParentHash)
	case parent.DealID != snap.DealID:
		f.Status = StatusFail
		f.Detail = fmt.Sprintf("%s parent %s belongs to deal %s", upstreamName, snap.ParentHash, parent.DealID)
	default:
		f.Status = StatusPass
	}
	return f
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
	switch f.Status {
	case StatusPass:
		r.Pass++
	case StatusWarn:
		r.Warn++
	case StatusFail:
		r.Fail++
	}
}
