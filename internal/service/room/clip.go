package room

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/TerribleTurtle/squad-sync/internal/repository/clip"
	"github.com/TerribleTurtle/squad-sync/internal/repository/connection"
)

func (s service) resolveUser(ctx context.Context, connId string) (connection.User, error) {
	user, err := s.userRepo.GetUser(ctx, connId)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return connection.User{}, ErrNotInRoom
		}
		return connection.User{}, err
	}

	return user, nil
}

type TriggerClipParams struct {
	ConnId       string
	SegmentCount int
}

type TriggerClipResponse struct {
	ClipId       string
	SegmentCount int
	// ReferenceTime tells clients when to start recording. It is never used
	// as ground truth for playback alignment.
	ReferenceTime int64
	Conns         []*websocket.Conn
}

func (s service) TriggerClip(ctx context.Context, params *TriggerClipParams) (TriggerClipResponse, error) {
	user, err := s.resolveUser(ctx, params.ConnId)
	if err != nil {
		return TriggerClipResponse{}, err
	}

	clipId := uuid.NewString()
	referenceTime := s.clock.Now().UnixMilli()

	if err := s.clipRepo.SetClip(ctx, &clip.SetClipParams{
		RoomId:        user.RoomId,
		ClipId:        clipId,
		CreatedAt:     referenceTime,
		SegmentCount:  params.SegmentCount,
		ReferenceTime: referenceTime,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set clip", "error", err)
		return TriggerClipResponse{}, err
	}

	members, err := s.roomRepo.GetMembers(ctx, user.RoomId)
	if err != nil {
		return TriggerClipResponse{}, err
	}
	for _, m := range members {
		if err := s.roomRepo.UpdateMemberIsRecording(ctx, user.RoomId, m.UserId, true); err != nil {
			s.logger.InfoContext(ctx, "failed to update member is recording", "error", err)
		}
	}

	// the trigger's author gets the start signal too
	conns, err := s.getConnsByRoomId(ctx, user.RoomId, "")
	if err != nil {
		return TriggerClipResponse{}, err
	}

	return TriggerClipResponse{
		ClipId:        clipId,
		SegmentCount:  params.SegmentCount,
		ReferenceTime: referenceTime,
		Conns:         conns,
	}, nil
}

type RequestUploadSlotParams struct {
	ConnId string
	ClipId string
}

type RequestUploadSlotResponse struct {
	ClipId    string
	UploadURL string
	Filename  string
}

// RequestUploadSlot issues a fresh presigned URL for the member's slot in the
// clip. Re-requesting is idempotent: same key, new URL.
func (s service) RequestUploadSlot(ctx context.Context, params *RequestUploadSlotParams) (RequestUploadSlotResponse, error) {
	user, err := s.resolveUser(ctx, params.ConnId)
	if err != nil {
		return RequestUploadSlotResponse{}, err
	}

	if _, err := s.clipRepo.GetClip(ctx, &clip.GetClipParams{RoomId: user.RoomId, ClipId: params.ClipId}); err != nil {
		if errors.Is(err, clip.ErrClipNotFound) {
			return RequestUploadSlotResponse{}, ErrClipNotFound
		}
		return RequestUploadSlotResponse{}, err
	}

	key := s.uploadKey(user.RoomId, params.ClipId, user.UserId)
	uploadURL, err := s.storage.IssueUploadURL(ctx, key)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to issue upload url", "error", err)
		return RequestUploadSlotResponse{}, fmt.Errorf("%w: %v", ErrUploadSlotUnavailable, err)
	}

	return RequestUploadSlotResponse{
		ClipId:    params.ClipId,
		UploadURL: uploadURL,
		Filename:  path.Base(key),
	}, nil
}

type CompleteUploadParams struct {
	ConnId           string
	ClipId           string
	VideoStartTimeMs int64
	DurationMs       int64
}

type CompleteUploadResponse struct {
	ClipId string
	View   View
	Conns  []*websocket.Conn
}

func (s service) CompleteUpload(ctx context.Context, params *CompleteUploadParams) (CompleteUploadResponse, error) {
	// reject implausible timestamps before they can poison timeline math
	if params.VideoStartTimeMs < minVideoStartTimeMs || params.DurationMs < 0 {
		return CompleteUploadResponse{}, ErrInvalidTimestamp
	}

	user, err := s.resolveUser(ctx, params.ConnId)
	if err != nil {
		return CompleteUploadResponse{}, err
	}

	if _, err := s.clipRepo.GetClip(ctx, &clip.GetClipParams{RoomId: user.RoomId, ClipId: params.ClipId}); err != nil {
		if errors.Is(err, clip.ErrClipNotFound) {
			return CompleteUploadResponse{}, ErrClipNotFound
		}
		return CompleteUploadResponse{}, err
	}

	key := s.uploadKey(user.RoomId, params.ClipId, user.UserId)
	exists, err := s.storage.HeadExists(ctx, key)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to verify upload", "error", err)
		return CompleteUploadResponse{}, fmt.Errorf("failed to verify upload: %w", err)
	}
	if !exists {
		return CompleteUploadResponse{}, ErrUploadVerificationFailed
	}

	view := clip.View{
		Author:           user.UserId,
		URL:              s.storage.ObjectURL(key),
		Timestamp:        s.clock.Now().UnixMilli(),
		VideoStartTimeMs: params.VideoStartTimeMs,
		DurationMs:       params.DurationMs,
	}
	if err := s.clipRepo.SetView(ctx, &clip.SetViewParams{
		RoomId: user.RoomId,
		ClipId: params.ClipId,
		View:   view,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set view", "error", err)
		return CompleteUploadResponse{}, err
	}

	if err := s.roomRepo.UpdateMemberIsRecording(ctx, user.RoomId, user.UserId, false); err != nil {
		s.logger.InfoContext(ctx, "failed to update member is recording", "error", err)
	}

	conns, err := s.getConnsByRoomId(ctx, user.RoomId, "")
	if err != nil {
		return CompleteUploadResponse{}, err
	}

	return CompleteUploadResponse{
		ClipId: params.ClipId,
		View:   View(view),
		Conns:  conns,
	}, nil
}
