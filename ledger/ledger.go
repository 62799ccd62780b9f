package ledger

import (
	"errors"
	"fmt"

	"github.com/oaksmc/ranktiers-bot/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrKitNotFound    = errors.New("kit not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrStorage        = errors.New("backing store failure")
	ErrConflict       = errors.New("concurrent write detected")
)

// DefaultKits is the fixed competitive category set. Kits are seeded once and
// never auto-created by updates, so a typo in an admin command cannot spawn a
// bogus category.
var DefaultKits = []string{
	"Mace",
	"Vanilla (Crystals)",
	"Sword",
	"Axe",
	"NethPOT",
	"SMP",
	"Lifesteal",
	"CartPVP",
	"UHC",
}

type Repository struct {
	DB     *gorm.DB
	Logger *zap.SugaredLogger
}

func NewRepository(db *gorm.DB, logger *zap.SugaredLogger) *Repository {
	return &Repository{
		DB:     db,
		Logger: logger,
	}
}

// SeedKits inserts any missing kits by name. Safe to run on every startup.
func (repo *Repository) SeedKits(names []string) error {
	for _, name := range names {
		var kit model.Kit
		err := repo.DB.Where("name = ?", name).FirstOrCreate(&kit, model.Kit{Name: name}).Error
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return nil
}

// UpsertTier records or overwrites a player's tier in one kit. The player is
// created lazily on first sight; the kit must already exist. At most one
// record per (player, kit) pair survives: an existing record is overwritten
// in place, last write wins.
func (repo *Repository) UpsertTier(username, kitName, tierCode string, points int) (*model.PlayerKit, error) {
	player, err := repo.getOrCreatePlayer(username)
	if err != nil {
		return nil, err
	}

	var kit model.Kit
	err = repo.DB.Where("name = ?", kitName).First(&kit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKitNotFound, kitName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var record model.PlayerKit
	err = repo.DB.Where("player_id = ? AND kit_id = ?", player.ID, kit.ID).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = model.PlayerKit{
			PlayerID: player.ID,
			KitID:    kit.ID,
			TierCode: tierCode,
			Points:   points,
		}
		if err := repo.DB.Create(&record).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	default:
		record.TierCode = tierCode
		record.Points = points
		if err := repo.DB.Save(&record).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	repo.Logger.Infof("tier updated: %s -> %s %s (%d pts)", username, kitName, tierCode, points)
	return &record, nil
}

// getOrCreatePlayer absorbs the create/create race on a new username: a
// unique-index violation means another writer inserted the row between our
// lookup and create, so re-fetch and use that row instead of failing.
func (repo *Repository) getOrCreatePlayer(username string) (*model.Player, error) {
	var player model.Player
	err := repo.DB.Where("username = ?", username).First(&player).Error
	if err == nil {
		return &player, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	player = model.Player{Username: username}
	createErr := repo.DB.Create(&player).Error
	if createErr == nil {
		repo.Logger.Infof("created player %s", username)
		return &player, nil
	}
	refetchErr := repo.DB.Where("username = ?", username).First(&player).Error
	if refetchErr == nil {
		return &player, nil
	}
	if errors.Is(refetchErr, gorm.ErrRecordNotFound) {
		// The create failed but no row exists either: a concurrent writer got
		// in and out between our two statements. Retryable.
		return nil, fmt.Errorf("%w: %v", ErrConflict, createErr)
	}
	return nil, fmt.Errorf("%w: %v", ErrStorage, createErr)
}

type KitStanding struct {
	Kit      string `json:"kit"`
	TierCode string `json:"tier_code"`
	Points   int    `json:"points"`
}

// PlayerLedger returns a player's tier records joined with kit names, points
// descending. A username with no records reports ErrPlayerNotFound; whether
// the player row itself exists is not distinguished.
func (repo *Repository) PlayerLedger(username string) ([]KitStanding, error) {
	var standings []KitStanding
	err := repo.DB.Model(&model.PlayerKit{}).
		Select("kits.name AS kit, player_kits.tier_code, player_kits.points").
		Joins("JOIN kits ON kits.id = player_kits.kit_id").
		Joins("JOIN players ON players.id = player_kits.player_id").
		Where("players.username = ?", username).
		Order("player_kits.points DESC").
		Scan(&standings).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(standings) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, username)
	}
	return standings, nil
}
