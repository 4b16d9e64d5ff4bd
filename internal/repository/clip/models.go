package clip

type Clip struct {
	Id            string `redis:"id"`
	CreatedAt     int64  `redis:"created_at"`
	SegmentCount  int    `redis:"segment_count"`
	ReferenceTime int64  `redis:"reference_time"`
}

// View is one member's uploaded recording for a clip. A clip holds at most
// one view per author; a later upload replaces the earlier one.
type View struct {
	Author           string `json:"author"`
	URL              string `json:"url"`
	Timestamp        int64  `json:"timestamp"`
	VideoStartTimeMs int64  `json:"video_start_time_ms"`
	DurationMs       int64  `json:"duration_ms"`
}
