package ranking

import (
	"path/filepath"
	"testing"

	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestAggregator(t *testing.T) (*Aggregator, *ledger.Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Player{}, &model.Kit{}, &model.PlayerKit{}))

	repo := ledger.NewRepository(db, zap.NewNop().Sugar())
	require.NoError(t, repo.SeedKits([]string{"Sword", "Axe", "Mace"}))
	return NewAggregator(db, zap.NewNop().Sugar()), repo
}

// Fan-out duplicates of the same (username, kit) row must not double-count.
func TestAggregateDeduplicates(t *testing.T) {
	rows := []Row{
		{Username: "Alice", Kit: "Sword", TierCode: "HT1", Points: 1000},
		{Username: "Alice", Kit: "Sword", TierCode: "HT1", Points: 1000},
	}

	summaries := Aggregate(rows)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Alice", summaries[0].Username)
	assert.Equal(t, 1000, summaries[0].TotalPoints)
	assert.Len(t, summaries[0].Kits, 1)
}

// A duplicate key with diverging values keeps the first occurrence only.
func TestAggregateKeepsFirstOccurrence(t *testing.T) {
	rows := []Row{
		{Username: "Alice", Kit: "Sword", TierCode: "HT1", Points: 1000},
		{Username: "Alice", Kit: "Sword", TierCode: "LT2", Points: 500},
	}

	summaries := Aggregate(rows)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1000, summaries[0].TotalPoints)
	require.Len(t, summaries[0].Kits, 1)
	assert.Equal(t, "HT1", summaries[0].Kits[0].TierCode)
}

func TestAggregateGroupsAndSums(t *testing.T) {
	rows := []Row{
		{Username: "Alice", Kit: "Sword", TierCode: "HT1", Points: 1000},
		{Username: "Bob", Kit: "Sword", TierCode: "LT1", Points: 700},
		{Username: "Alice", Kit: "Axe", TierCode: "HT2", Points: 800},
	}

	summaries := Aggregate(rows)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Alice", summaries[0].Username)
	assert.Equal(t, 1800, summaries[0].TotalPoints)
	assert.Len(t, summaries[0].Kits, 2)
	assert.Equal(t, "Bob", summaries[1].Username)
	assert.Equal(t, 700, summaries[1].TotalPoints)
}

func TestBuildLeaderboardOrdering(t *testing.T) {
	agg, repo := newTestAggregator(t)

	upserts := []struct {
		username string
		points   int
	}{
		{"Carol", 300},
		{"Alice", 900},
		{"Bob", 900},
		{"Dave", 100},
	}
	for _, u := range upserts {
		_, err := repo.UpsertTier(u.username, "Sword", "HT1", u.points)
		require.NoError(t, err)
	}

	board, err := agg.BuildLeaderboard(10)
	require.NoError(t, err)
	require.Len(t, board, 4)

	totals := []int{board[0].TotalPoints, board[1].TotalPoints, board[2].TotalPoints, board[3].TotalPoints}
	assert.Equal(t, []int{900, 900, 300, 100}, totals)
	// Equal totals stay in discovery order: Alice was recorded before Bob.
	assert.Equal(t, "Alice", board[0].Username)
	assert.Equal(t, "Bob", board[1].Username)
}

func TestBuildLeaderboardTruncates(t *testing.T) {
	agg, repo := newTestAggregator(t)

	_, err := repo.UpsertTier("Alice", "Sword", "HT1", 1000)
	require.NoError(t, err)
	_, err = repo.UpsertTier("Bob", "Sword", "HT2", 800)
	require.NoError(t, err)
	_, err = repo.UpsertTier("Carol", "Sword", "HT3", 600)
	require.NoError(t, err)

	board, err := agg.BuildLeaderboard(2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "Alice", board[0].Username)
	assert.Equal(t, "Bob", board[1].Username)
}

func TestBuildLeaderboardDefaultLimit(t *testing.T) {
	agg, repo := newTestAggregator(t)

	_, err := repo.UpsertTier("Alice", "Sword", "HT1", 1000)
	require.NoError(t, err)

	board, err := agg.BuildLeaderboard(0)
	require.NoError(t, err)
	assert.Len(t, board, 1)
}

func TestFetchRowsJoinsNames(t *testing.T) {
	agg, repo := newTestAggregator(t)

	_, err := repo.UpsertTier("Alice", "Mace", "HT1", 400)
	require.NoError(t, err)

	rows, err := agg.FetchRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{Username: "Alice", Kit: "Mace", TierCode: "HT1", Points: 400}, rows[0])
}
