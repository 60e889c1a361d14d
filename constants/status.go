package constants

// RunStatus is the canonical status for rows in runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// DocStatus is the per-document outcome recorded in stage reports.
type DocStatus string

const (
	DocStatusOK        DocStatus = "OK"
	DocStatusFlattened DocStatus = "FLATTENED" // succeeded after the flatten retry
	DocStatusSkipped   DocStatus = "SKIPPED"   // empty document
	DocStatusFailed    DocStatus = "FAILED"
)

// Stage names the pipeline steps; also accepted on the command line.
type Stage string

const (
	StageCombine   Stage = "combine"
	StageCrop      Stage = "crop"
	StageRasterize Stage = "rasterize"
	StageOCR       Stage = "ocr"
	StageSort      Stage = "sort"
)

// AllStages is the pipeline order.
var AllStages = []Stage{StageCombine, StageCrop, StageRasterize, StageOCR, StageSort}

// ParseStage maps a command line token to a Stage.
func ParseStage(s string) (Stage, bool) {
	for _, st := range AllStages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}
