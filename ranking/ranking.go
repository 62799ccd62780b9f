package ranking

import (
	"fmt"

	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/model"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// DefaultLimit bounds the leaderboard when the caller passes no limit.
const DefaultLimit = 100

// Row is one (player, kit) tier record as returned by the joined read.
type Row struct {
	Username string
	Kit      string
	TierCode string
	Points   int
}

type PlayerSummary struct {
	Username    string               `json:"username"`
	TotalPoints int                  `json:"total_points"`
	Kits        []ledger.KitStanding `json:"kits"`
}

type Aggregator struct {
	DB     *gorm.DB
	Logger *zap.SugaredLogger
}

func NewAggregator(db *gorm.DB, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		DB:     db,
		Logger: logger,
	}
}

// FetchRows reads every tier record joined with player and kit names in a
// single query, points descending. The secondary id ordering keeps equal-point
// rows in record-creation order so downstream grouping is deterministic.
func (agg *Aggregator) FetchRows() ([]Row, error) {
	var rows []Row
	err := agg.DB.Model(&model.PlayerKit{}).
		Select("players.username, kits.name AS kit, player_kits.tier_code, player_kits.points").
		Joins("JOIN players ON players.id = player_kits.player_id").
		Joins("JOIN kits ON kits.id = player_kits.kit_id").
		Order("player_kits.points DESC, player_kits.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return rows, nil
}

// PlayerRows is FetchRows restricted to one username.
func (agg *Aggregator) PlayerRows(username string) ([]Row, error) {
	var rows []Row
	err := agg.DB.Model(&model.PlayerKit{}).
		Select("players.username, kits.name AS kit, player_kits.tier_code, player_kits.points").
		Joins("JOIN players ON players.id = player_kits.player_id").
		Joins("JOIN kits ON kits.id = player_kits.kit_id").
		Where("players.username = ?", username).
		Order("player_kits.points DESC, player_kits.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}
	return rows, nil
}

// Aggregate groups rows by username into summaries. Duplicate (username, kit)
// rows are collapsed to their first occurrence before any points are summed:
// the joined read can fan out, and a duplicated row must never inflate a
// player's total. Summaries come back in first-discovery order.
func Aggregate(rows []Row) []PlayerSummary {
	seen := make(map[[2]string]struct{}, len(rows))
	index := make(map[string]int)
	var summaries []PlayerSummary

	for _, row := range rows {
		key := [2]string{row.Username, row.Kit}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		i, ok := index[row.Username]
		if !ok {
			i = len(summaries)
			index[row.Username] = i
			summaries = append(summaries, PlayerSummary{Username: row.Username})
		}
		summaries[i].Kits = append(summaries[i].Kits, ledger.KitStanding{
			Kit:      row.Kit,
			TierCode: row.TierCode,
			Points:   row.Points,
		})
		summaries[i].TotalPoints += row.Points
	}
	return summaries
}

// BuildLeaderboard aggregates the whole ledger into a bounded leaderboard,
// total points descending. Ties keep their discovery order (stable sort, no
// secondary key).
func (agg *Aggregator) BuildLeaderboard(limit int) ([]PlayerSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := agg.FetchRows()
	if err != nil {
		return nil, err
	}
	summaries := Aggregate(rows)
	slices.SortStableFunc(summaries, func(a, b PlayerSummary) bool {
		return a.TotalPoints > b.TotalPoints
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	agg.Logger.Debugf("built leaderboard: %d rows, %d players", len(rows), len(summaries))
	return summaries, nil
}
