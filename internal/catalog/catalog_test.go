package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateRoomAndLookupByToken(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.CreateRoom(ctx, "room-1", "Jam Room", 7891, "tok-abc"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	r, err := c.RoomByToken(ctx, "tok-abc")
	if err != nil {
		t.Fatalf("RoomByToken: %v", err)
	}
	if r.ID != "room-1" || r.Port != 7891 {
		t.Fatalf("RoomByToken = %+v, want ID=room-1 Port=7891", r)
	}
}

func TestRoomByTokenNotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if _, err := c.RoomByToken(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("RoomByToken = %v, want ErrNotFound", err)
	}
}

func TestRecordRecordingAndList(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.CreateRoom(ctx, "room-1", "Jam Room", 7891, "tok-abc"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := c.RecordRecording(ctx, "rec-1", "room-1", "recs/audio_12:00:00.raw", 4096); err != nil {
		t.Fatalf("RecordRecording: %v", err)
	}

	recs, err := c.RecordingsForRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("RecordingsForRoom: %v", err)
	}
	if len(recs) != 1 || recs[0].SizeBytes != 4096 {
		t.Fatalf("RecordingsForRoom = %+v, want one entry with SizeBytes=4096", recs)
	}
}

func TestListRoomsOrdersMostRecentFirst(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	c.CreateRoom(ctx, "room-1", "First", 7891, "tok-1")
	time.Sleep(2 * time.Millisecond)
	c.CreateRoom(ctx, "room-2", "Second", 7892, "tok-2")

	rooms, err := c.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("ListRooms len = %d, want 2", len(rooms))
	}
	if rooms[0].ID != "room-2" {
		t.Fatalf("ListRooms[0].ID = %q, want room-2 (most recent first)", rooms[0].ID)
	}
}
