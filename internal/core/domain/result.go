package domain

import "time"

// Stage is a state of the per-item pipeline.
type Stage int

const (
	StageProbing Stage = iota
	StageDecoding
	StageUploading
	StageSizingDestination
	StageAllocatingScratch
	StageTransforming
	StageReleasingScratch
	StageDownloading
	StageSaving
	StageDone
)

var stageNames = [...]string{
	"probing",
	"decoding",
	"uploading",
	"sizing destination",
	"allocating scratch",
	"transforming",
	"releasing scratch",
	"downloading",
	"saving",
	"done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureOpen
	FailureDecode
	FailureDevice
	FailureSize
	FailureTransform
	FailureSave
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureOpen:
		return "open"
	case FailureDecode:
		return "decode"
	case FailureDevice:
		return "device"
	case FailureSize:
		return "size"
	case FailureTransform:
		return "transform"
	case FailureSave:
		return "save"
	default:
		return "unknown"
	}
}

// Result is the outcome of one pipeline invocation. On success Err is nil and Stage is StageDone.
// On failure Failure names the kind of failure and Stage the state that failed.
type Result struct {
	Item    WorkItem
	Output  string
	Source  Size
	Dest    Size
	Stage   Stage
	Failure FailureKind
	Err     error
	Elapsed time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Reason is the human-readable failure message, empty on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

type RunMode string

const (
	ModeSingle RunMode = "single"
	ModeList   RunMode = "list"
)

// BatchStats aggregates the outcome of one run.
type BatchStats struct {
	Mode      RunMode
	Attempted int
	Succeeded int
	Failed    int
	Failures  []Result
	Elapsed   time.Duration
}

func (b *BatchStats) Record(r Result) {
	b.Attempted++
	if r.OK() {
		b.Succeeded++
		return
	}
	b.Failed++
	b.Failures = append(b.Failures, r)
}
