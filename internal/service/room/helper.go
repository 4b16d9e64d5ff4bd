package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/TerribleTurtle/squad-sync/internal/repository/clip"
)

func (s service) uploadKey(roomId, clipId, userId string) string {
	return fmt.Sprintf("rooms/%s/clips/%s/%s.webm", roomId, clipId, userId)
}

func (s service) getMembers(ctx context.Context, roomId string) ([]Member, error) {
	repoMembers, err := s.roomRepo.GetMembers(ctx, roomId)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(repoMembers))
	for _, m := range repoMembers {
		members = append(members, Member{
			UserId:      m.UserId,
			DisplayName: m.DisplayName,
			IsRecording: m.IsRecording,
			LastSeen:    m.LastSeen,
		})
	}

	return members, nil
}

// getConnsByRoomId resolves live connections for every member of a room.
// Members without a live connection (pending removal after a transport drop)
// are skipped rather than treated as an error.
func (s service) getConnsByRoomId(ctx context.Context, roomId, excludeConnId string) ([]*websocket.Conn, error) {
	repoMembers, err := s.roomRepo.GetMembers(ctx, roomId)
	if err != nil {
		return nil, err
	}

	conns := make([]*websocket.Conn, 0, len(repoMembers))
	for _, m := range repoMembers {
		if m.ConnId == "" || m.ConnId == excludeConnId {
			continue
		}

		conn, err := s.connRepo.GetConn(m.ConnId)
		if err != nil {
			s.logger.DebugContext(ctx, "no live conn for member", "user_id", m.UserId)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s service) getClips(ctx context.Context, roomId string) ([]Clip, error) {
	clipIds, err := s.clipRepo.GetClipIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	clips := make([]Clip, 0, len(clipIds))
	for _, clipId := range clipIds {
		c, err := s.clipRepo.GetClip(ctx, &clip.GetClipParams{RoomId: roomId, ClipId: clipId})
		if err != nil {
			s.logger.InfoContext(ctx, "failed to get clip", "clip_id", clipId, "error", err)
			continue
		}

		views, err := s.clipRepo.GetViews(ctx, &clip.GetViewsParams{RoomId: roomId, ClipId: clipId})
		if err != nil {
			return nil, err
		}

		clips = append(clips, Clip{
			Id:            c.Id,
			CreatedAt:     c.CreatedAt,
			SegmentCount:  c.SegmentCount,
			ReferenceTime: c.ReferenceTime,
			Views:         s.toViews(views),
		})
	}

	return clips, nil
}

func (s service) toViews(repoViews []clip.View) []View {
	views := make([]View, 0, len(repoViews))
	for _, v := range repoViews {
		views = append(views, View(v))
	}

	return views
}
