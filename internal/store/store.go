// Package store persists finished sessions and serves the leaderboard.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kh4rit/kh-domino-game/pkg/types"
)

type Player struct {
	ID          uint  `gorm:"primaryKey"`
	PlayerID    int64 `gorm:"index:idx_player_group"`
	GroupID     int64 `gorm:"index:idx_player_group"`
	Username    string
	DisplayName string
	CreatedAt   time.Time
}

type Session struct {
	ID         uint `gorm:"primaryKey"`
	GroupID    int64
	Status     string
	CreatedAt  time.Time
	FinishedAt *time.Time
	Games      []Game
}

type Game struct {
	ID         uint `gorm:"primaryKey"`
	SessionID  uint
	GroupID    int64 `gorm:"index"`
	GameNumber int
	Status     string
	WinnerID   *int64
	IsFish     bool
	CreatedAt  time.Time
	FinishedAt *time.Time
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to postgres and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Player{}, &Session{}, &Game{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// EnsurePlayer upserts a player's display name per group.
func (s *Store) EnsurePlayer(ctx context.Context, playerID, groupID int64, displayName, username string) error {
	var p Player
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND group_id = ?", playerID, groupID).
		First(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.db.WithContext(ctx).Create(&Player{
			PlayerID:    playerID,
			GroupID:     groupID,
			DisplayName: displayName,
			Username:    username,
		}).Error
	case err != nil:
		return err
	default:
		p.DisplayName = displayName
		p.Username = username
		return s.db.WithContext(ctx).Save(&p).Error
	}
}

// SaveSessionResults records a finished session and its games.
func (s *Store) SaveSessionResults(ctx context.Context, groupID int64, results []types.GameResult) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess := Session{GroupID: groupID, Status: "finished", FinishedAt: &now}
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}
		for _, r := range results {
			game := Game{
				SessionID:  sess.ID,
				GroupID:    groupID,
				GameNumber: r.GameNumber,
				Status:     "finished",
				WinnerID:   r.WinnerID,
				IsFish:     r.IsFish,
				FinishedAt: &now,
			}
			if err := tx.Create(&game).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Leaderboard ranks a group's winners by wins; fish games show up as a
// single pseudo-entry.
func (s *Store) Leaderboard(ctx context.Context, groupID int64) ([]types.LeaderboardRow, error) {
	var counts []struct {
		WinnerID *int64
		IsFish   bool
		Wins     int
	}
	err := s.db.WithContext(ctx).
		Model(&Game{}).
		Select("winner_id, is_fish, count(*) as wins").
		Where("group_id = ? AND status = ?", groupID, "finished").
		Group("winner_id, is_fish").
		Order("wins DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	rows := make([]types.LeaderboardRow, 0, len(counts))
	for _, c := range counts {
		if c.IsFish {
			rows = append(rows, types.LeaderboardRow{Name: "Fish", Wins: c.Wins, IsFish: true})
			continue
		}
		if c.WinnerID == nil {
			continue
		}
		name := fmt.Sprintf("Player %d", *c.WinnerID)
		var p Player
		if err := s.db.WithContext(ctx).
			Where("player_id = ? AND group_id = ?", *c.WinnerID, groupID).
			First(&p).Error; err == nil {
			name = p.DisplayName
		}
		rows = append(rows, types.LeaderboardRow{Name: name, Wins: c.Wins})
	}
	return rows, nil
}

// Discard is a no-op sink for running without a database.
type Discard struct{}

func (Discard) SaveSessionResults(context.Context, int64, []types.GameResult) error { return nil }
