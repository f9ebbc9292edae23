package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchToken Phase = iota
	FetchBatches
	MergeResults
	WriteExport
)

func (p Phase) String() string {
	switch p {
	case FetchToken:
		return "fetch_token"
	case FetchBatches:
		return "fetch_batches"
	case MergeResults:
		return "merge_results"
	case WriteExport:
		return "write_export"
	default:
		return ""
	}
}

func fetchTokenUpdate(attempt int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchToken,
		Step:    attempt,
		Total:   attempt,
		Message: "Requesting access token...",
	}
}

func startBatchesUpdate(total, ids int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBatches,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching metadata for %d tracks in %d batches...", ids, total),
	}
}

func batchUpdate(step, total, resolved int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBatches,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %d tracks resolved", step, total, resolved),
	}
}

func batchFailedUpdate(step, total int, failure BatchFailure) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBatches,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %d tracks skipped (%s): %v", step, total, len(failure.IDs), failure.Kind, failure.Err),
		Data:    failure,
	}
}

func mergedUpdate(res *EnrichResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeResults,
		Step:    res.Batches,
		Total:   res.Batches,
		Message: fmt.Sprintf("Resolved %d tracks, %d batches failed", res.Resolved, len(res.Failures)),
		Data:    res,
	}
}

// ExportUpdate reports a finished export of count records to path.
func ExportUpdate(path string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Wrote %d tracks to %s", count, path),
	}
}
