package types

import (
	"testing"

	"github.com/kh4rit/kh-domino-game/internal/engine"
)

func TestSnapshotHidesOtherHands(t *testing.T) {
	g, err := engine.New([]engine.SeatInfo{
		{ID: 1, Name: "Anna"}, {ID: 2, Name: "Ben"}, {ID: 3, Name: "Cleo"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := SnapshotFor(g, 2)
	for _, p := range snap.Players {
		if p.ID == 2 {
			if len(p.Hand) != 7 {
				t.Fatalf("viewer hand has %d tiles, want 7", len(p.Hand))
			}
			continue
		}
		if p.Hand != nil {
			t.Fatalf("player %d hand leaked to viewer", p.ID)
		}
		if p.TileCount != 7 {
			t.Fatalf("player %d tile count %d", p.ID, p.TileCount)
		}
	}

	if snap.Status != "active" || snap.WinnerID != nil {
		t.Fatalf("fresh game snapshot: status=%s winner=%v", snap.Status, snap.WinnerID)
	}
	if snap.LeftEnd != nil || snap.RightEnd != nil {
		t.Fatalf("empty board should expose no ends")
	}
	if snap.BoneyardCount != 7 {
		t.Fatalf("boneyard count %d", snap.BoneyardCount)
	}
}

func TestSnapshotEndsAndWinner(t *testing.T) {
	g, err := engine.New([]engine.SeatInfo{
		{ID: 1, Name: "Anna"}, {ID: 2, Name: "Ben"}, {ID: 3, Name: "Cleo"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.Board = []engine.BoardTile{{Tile: engine.NewTile(2, 5), ExposedLeft: 2, ExposedRight: 5}}

	snap := SnapshotFor(g, 1)
	if snap.LeftEnd == nil || snap.RightEnd == nil || *snap.LeftEnd != 2 || *snap.RightEnd != 5 {
		t.Fatalf("ends %v %v", snap.LeftEnd, snap.RightEnd)
	}

	g.Status = engine.StatusFinished
	g.WinnerID = 3
	snap = SnapshotFor(g, 1)
	if snap.WinnerID == nil || *snap.WinnerID != 3 {
		t.Fatalf("winner %v", snap.WinnerID)
	}

	g.IsFish = true
	snap = SnapshotFor(g, 1)
	if snap.WinnerID != nil || !snap.IsFish {
		t.Fatalf("fish snapshot should carry no winner: %+v", snap)
	}
}

func TestTileRoundTripCanonicalizes(t *testing.T) {
	if (Tile{Left: 6, Right: 2}).ToEngine() != engine.NewTile(2, 6) {
		t.Fatalf("reversed wire tile not canonicalized")
	}
}
