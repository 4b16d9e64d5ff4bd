package timeline

// View is one participant's recording placed on the shared wall-clock axis.
// OffsetMs is an estimated correction applied on top of the claimed start
// time, usually produced by the audio offset estimator.
type View struct {
	ID          string
	StartTimeMs int64
	DurationMs  int64
	OffsetMs    int64
}

func (v View) effectiveStartMs() int64 {
	return v.StartTimeMs + v.OffsetMs
}

func (v View) effectiveEndMs() int64 {
	return v.effectiveStartMs() + v.DurationMs
}

// minGlobalDurationMs keeps the shared window playable even when the overlap
// between views is degenerate or negative.
const minGlobalDurationMs = 1000

// Window is the overlap of all views: the latest start to the earliest end.
type Window struct {
	StartMs          int64
	EndMs            int64
	GlobalDurationMs int64
}

func ComputeWindow(views []View) Window {
	if len(views) == 0 {
		return Window{GlobalDurationMs: minGlobalDurationMs}
	}

	start := views[0].effectiveStartMs()
	end := views[0].effectiveEndMs()
	for _, v := range views[1:] {
		if s := v.effectiveStartMs(); s > start {
			start = s
		}
		if e := v.effectiveEndMs(); e < end {
			end = e
		}
	}

	duration := end - start
	if duration < minGlobalDurationMs {
		duration = minGlobalDurationMs
	}

	return Window{
		StartMs:          start,
		EndMs:            end,
		GlobalDurationMs: duration,
	}
}
