package clip

type SetClipParams struct {
	RoomId        string
	ClipId        string
	CreatedAt     int64
	SegmentCount  int
	ReferenceTime int64
}

type GetClipParams struct {
	RoomId string
	ClipId string
}

type SetViewParams struct {
	RoomId string
	ClipId string
	View   View
}

type GetViewsParams struct {
	RoomId string
	ClipId string
}
