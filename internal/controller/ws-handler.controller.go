package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/TerribleTurtle/squad-sync/internal/service/room"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// writeServiceError maps known service errors to protocol error codes sent to
// the sender. Unknown errors are returned to the router for logging.
func (c controller) writeServiceError(ctx context.Context, conn *websocket.Conn, err error) error {
	var code string
	switch {
	case errors.Is(err, room.ErrRoomFull):
		code = "ROOM_FULL"
	case errors.Is(err, room.ErrNotInRoom):
		code = "NOT_IN_ROOM"
	case errors.Is(err, room.ErrClipNotFound):
		code = "CLIP_NOT_FOUND"
	case errors.Is(err, room.ErrInvalidTimestamp):
		code = "INVALID_TIMESTAMP"
	case errors.Is(err, room.ErrUploadSlotUnavailable):
		code = "UPLOAD_ERROR"
	case errors.Is(err, room.ErrUploadVerificationFailed):
		code = "UPLOAD_VERIFICATION_FAILED"
	default:
		return err
	}

	if writeErr := c.writeError(ctx, conn, code, err.Error()); writeErr != nil {
		return fmt.Errorf("failed to write error: %w", writeErr)
	}

	return nil
}

type JoinRoomInput struct {
	RoomId      string `json:"room_id" validate:"required,max=64"`
	UserId      string `json:"user_id" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"required,max=32"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input JoinRoomInput) error {
	connId := c.getConnIdFromCtx(ctx)

	joinRoomResp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		ConnId:      connId,
		RoomId:      input.RoomId,
		UserId:      input.UserId,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		return c.writeServiceError(ctx, conn, err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type:    "ROOM_STATE",
		Payload: joinRoomResp.RoomState,
	}); err != nil {
		return fmt.Errorf("failed to write room state: %w", err)
	}

	if err := c.broadcast(ctx, joinRoomResp.OtherConns, &Output{
		Type: "MEMBER_JOINED",
		Payload: map[string]any{
			"member": joinRoomResp.JoinedMember,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast member joined: %w", err)
	}

	return nil
}

type EmptyInput struct{}

func (c controller) handleLeaveRoom(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	connId := c.getConnIdFromCtx(ctx)

	leaveRoomResp, err := c.roomService.LeaveRoom(ctx, &room.LeaveRoomParams{ConnId: connId})
	if err != nil {
		return c.writeServiceError(ctx, conn, err)
	}

	if err := c.broadcast(ctx, leaveRoomResp.Conns, &Output{
		Type: "MEMBER_LEFT",
		Payload: map[string]any{
			"user_id": leaveRoomResp.UserId,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast member left: %w", err)
	}

	return nil
}

type TimeSyncInput struct {
	ClientTime int64 `json:"client_time"`
}

func (c controller) handleTimeSync(ctx context.Context, conn *websocket.Conn, input TimeSyncInput) error {
	serverReceive := c.clock.Now().UnixMilli()

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "TIME_SYNC_RESPONSE",
		Payload: map[string]any{
			"client_time":    input.ClientTime,
			"server_receive": serverReceive,
			"server_send":    c.clock.Now().UnixMilli(),
		},
	}); err != nil {
		return fmt.Errorf("failed to write time sync response: %w", err)
	}

	return nil
}

type TriggerClipInput struct {
	SegmentCount int `json:"segment_count" validate:"required,gte=1"`
}

func (c controller) handleTriggerClip(ctx context.Context, conn *websocket.Conn, input TriggerClipInput) error {
	connId := c.getConnIdFromCtx(ctx)

	triggerClipResp, err := c.roomService.TriggerClip(ctx, &room.TriggerClipParams{
		ConnId:       connId,
		SegmentCount: input.SegmentCount,
	})
	if err != nil {
		return c.writeServiceError(ctx, conn, err)
	}

	if err := c.broadcast(ctx, triggerClipResp.Conns, &Output{
		Type: "START_CLIP",
		Payload: map[string]any{
			"clip_id":        triggerClipResp.ClipId,
			"segment_count":  triggerClipResp.SegmentCount,
			"reference_time": triggerClipResp.ReferenceTime,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast start clip: %w", err)
	}

	return nil
}

type RequestUploadUrlInput struct {
	ClipId string `json:"clip_id" validate:"required"`
}

func (c controller) handleRequestUploadUrl(ctx context.Context, conn *websocket.Conn, input RequestUploadUrlInput) error {
	connId := c.getConnIdFromCtx(ctx)

	uploadSlotResp, err := c.roomService.RequestUploadSlot(ctx, &room.RequestUploadSlotParams{
		ConnId: connId,
		ClipId: input.ClipId,
	})
	if err != nil {
		return c.writeServiceError(ctx, conn, err)
	}

	if err := c.writeToConn(ctx, conn, &Output{
		Type: "UPLOAD_URL_GRANTED",
		Payload: map[string]any{
			"clip_id":    uploadSlotResp.ClipId,
			"upload_url": uploadSlotResp.UploadURL,
			"filename":   uploadSlotResp.Filename,
		},
	}); err != nil {
		return fmt.Errorf("failed to write upload url granted: %w", err)
	}

	return nil
}

// timestamp plausibility is the service's call so the sender gets an
// INVALID_TIMESTAMP error instead of a silent schema drop
type UploadCompleteInput struct {
	ClipId           string `json:"clip_id" validate:"required"`
	VideoStartTimeMs int64  `json:"video_start_time_ms"`
	DurationMs       int64  `json:"duration_ms"`
}

func (c controller) handleUploadComplete(ctx context.Context, conn *websocket.Conn, input UploadCompleteInput) error {
	connId := c.getConnIdFromCtx(ctx)

	completeUploadResp, err := c.roomService.CompleteUpload(ctx, &room.CompleteUploadParams{
		ConnId:           connId,
		ClipId:           input.ClipId,
		VideoStartTimeMs: input.VideoStartTimeMs,
		DurationMs:       input.DurationMs,
	})
	if err != nil {
		return c.writeServiceError(ctx, conn, err)
	}

	if err := c.broadcast(ctx, completeUploadResp.Conns, &Output{
		Type: "CLIP_UPDATED",
		Payload: map[string]any{
			"clip_id": completeUploadResp.ClipId,
			"view":    completeUploadResp.View,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast clip updated: %w", err)
	}

	return nil
}
