package client

import (
	"context"
	"time"
)

// Recording is a finished local capture ready for upload.
type Recording struct {
	FilePath string
	// DurationMs is the captured length as measured locally.
	DurationMs int64
	// StartTimeUTCMs is the wall-clock start of the capture after time sync
	// correction has been applied.
	StartTimeUTCMs int64
}

// Recorder is the capture seam. Implementations wrap whatever records the
// screen on the host platform.
type Recorder interface {
	// Start begins capturing into a rolling buffer of segmentCount segments.
	Start(ctx context.Context, segmentCount int) error
	// Stop finalizes the buffer into a single recording file.
	Stop(ctx context.Context) (Recording, error)
}

// Uploader pushes a finished recording to a presigned destination.
type Uploader interface {
	PutFile(ctx context.Context, uploadURL, filePath string) error
}

// SyncedClock converts local timestamps to server time using the offset
// learned from time sync round trips.
type SyncedClock struct {
	// OffsetMs is serverTime - clientTime as last measured.
	OffsetMs int64
}

// Update folds in one sync round trip, NTP style: the server timestamps are
// assumed to sit in the middle of the measured round trip.
func (c *SyncedClock) Update(clientSend, serverReceive, serverSend, clientReceive int64) {
	roundTrip := (clientReceive - clientSend) - (serverSend - serverReceive)
	c.OffsetMs = serverReceive - clientSend - roundTrip/2
}

// ToServerTime maps a local wall-clock reading to server time.
func (c *SyncedClock) ToServerTime(local time.Time) int64 {
	return local.UnixMilli() + c.OffsetMs
}
