package room

type Member struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsRecording bool   `json:"is_recording"`
	LastSeen    int64  `json:"last_seen"`
}

type View struct {
	Author           string `json:"author"`
	URL              string `json:"url"`
	Timestamp        int64  `json:"timestamp"`
	VideoStartTimeMs int64  `json:"video_start_time_ms"`
	DurationMs       int64  `json:"duration_ms"`
}

type Clip struct {
	Id            string `json:"id"`
	CreatedAt     int64  `json:"created_at"`
	SegmentCount  int    `json:"segment_count"`
	ReferenceTime int64  `json:"reference_time"`
	Views         []View `json:"views"`
}

type RoomState struct {
	Id         string   `json:"id"`
	Members    []Member `json:"members"`
	Clips      []Clip   `json:"clips"`
	ServerTime int64    `json:"server_time"`
}
