package fs

import (
	"fmt"
	"strings"

	"github.com/obari/ledger/pkg/core"
)

const snapshotExt = ".json"

// FileName derives the storage filename for a snapshot. The name is fully
// determined by (dealID, stage, hash, parentHash), so divergent payloads for
// the same deal and stage can never collide.
//
//	BASE:     {dealId}-{hash}.json
//	ADJUSTED: {dealId}-{baseHash}-{hash}-rpt.json
//	FINAL:    {dealId}-{adjustedHash}-{hash}-final.json
func FileName(stage core.Stage, dealID, hash, parentHash string) (string, error) {
	switch stage {
	case core.StageBase:
		return dealID + "-" + hash + snapshotExt, nil
	case core.StageAdjusted:
		return dealID + "-" + parentHash + "-" + hash + "-rpt" + snapshotExt, nil
	case core.StageFinal:
		return dealID + "-" + parentHash + "-" + hash + "-final" + snapshotExt, nil
	}
	return "", fmt.Errorf("unknown stage: %q", stage)
}

// dealPattern returns the doublestar pattern matching a deal's files in the
// given stage. Deal IDs may themselves contain hyphens, so the match is a
// prefilter only; the parsed envelope's dealId is authoritative.
func dealPattern(stage core.Stage, dealID string) string {
	switch stage {
	case core.StageAdjusted:
		return dealID + "-*-*-rpt" + snapshotExt
	case core.StageFinal:
		return dealID + "-*-*-final" + snapshotExt
	default:
		return dealID + "-*" + snapshotExt
	}
}

// stageMatch reports whether a directory entry belongs to the stage. BASE
// names carry no suffix tag, so names tagged for the chained stages are
// rejected explicitly.
func stageMatch(stage core.Stage, name string) bool {
	if !strings.HasSuffix(name, snapshotExt) {
		return false
	}
	switch stage {
	case core.StageAdjusted:
		return strings.HasSuffix(name, "-rpt"+snapshotExt)
	case core.StageFinal:
		return strings.HasSuffix(name, "-final"+snapshotExt)
	default:
		return !strings.HasSuffix(name, "-rpt"+snapshotExt) && !strings.HasSuffix(name, "-final"+snapshotExt)
	}
}

// hashSuffix returns the filename suffix identifying a snapshot by its own
// content hash within a stage directory.
func hashSuffix(stage core.Stage, hash string) string {
	switch stage {
	case core.StageAdjusted:
		return "-" + hash + "-rpt" + snapshotExt
	case core.StageFinal:
		return "-" + hash + "-final" + snapshotExt
	default:
		return "-" + hash + snapshotExt
	}
}
