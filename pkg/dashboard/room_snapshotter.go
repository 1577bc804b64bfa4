package dashboard

import (
	"context"
	"fmt"

	"github.com/cluso-labs/songlist3pc/pkg/room"
)

// RoomSnapshotter adapts a room.Room running in this process to
// Snapshotter via the QuerySongList message, the same read-only path
// pkg/roomql uses.
type RoomSnapshotter struct {
	Room *room.Room
}

func (s RoomSnapshotter) Snapshot(ctx context.Context) (map[string]string, error) {
	reply := make(chan map[string]string, 1)
	s.Room.Send(room.QuerySongList{Reply: reply})
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("dashboard: snapshot request cancelled: %w", ctx.Err())
	}
}
