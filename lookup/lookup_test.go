package lookup

import (
	"path/filepath"
	"testing"

	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/links"
	"github.com/oaksmc/ranktiers-bot/model"
	"github.com/oaksmc/ranktiers-bot/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *ledger.Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Player{}, &model.Kit{}, &model.PlayerKit{}))

	nop := zap.NewNop().Sugar()
	repo := ledger.NewRepository(db, nop)
	require.NoError(t, repo.SeedKits([]string{"Sword", "Axe"}))

	linkStore, err := links.NewStore(filepath.Join(t.TempDir(), "links.json"), nop)
	require.NoError(t, err)

	return NewService(linkStore, ranking.NewAggregator(db, nop), nop), repo
}

func TestWhoisByName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Links.CreateLink("Steve", "id123")
	require.NoError(t, err)

	res, err := svc.Whois("Steve", "")
	require.NoError(t, err)
	assert.Equal(t, "Steve", res.GameName)
	assert.Equal(t, "id123", res.IdentityID)
}

func TestWhoisByIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Links.CreateLink("Steve", "id123")
	require.NoError(t, err)

	res, err := svc.Whois("", "id123")
	require.NoError(t, err)
	assert.Equal(t, "Steve", res.GameName)
	assert.Equal(t, "id123", res.IdentityID)
}

// With both inputs present the name wins, even when the identity id points at
// a different link.
func TestWhoisNamePrecedence(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Links.CreateLink("Steve", "id123")
	require.NoError(t, err)
	_, err = svc.Links.CreateLink("Alex", "id456")
	require.NoError(t, err)

	res, err := svc.Whois("Steve", "id456")
	require.NoError(t, err)
	assert.Equal(t, "Steve", res.GameName)
	assert.Equal(t, "id123", res.IdentityID)
}

func TestWhoisNoInputs(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Whois("", "")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestWhoisUnresolvable(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Whois("Nobody", "")
	assert.ErrorIs(t, err, links.ErrNotLinked)
	_, err = svc.Whois("", "id999")
	assert.ErrorIs(t, err, links.ErrNotLinked)
}

func TestProfileAggregates(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := repo.UpsertTier("Alice", "Sword", "HT1", 1000)
	require.NoError(t, err)
	_, err = repo.UpsertTier("Alice", "Axe", "LT2", 300)
	require.NoError(t, err)
	_, err = repo.UpsertTier("Bob", "Sword", "HT3", 500)
	require.NoError(t, err)

	summary, err := svc.Profile("Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", summary.Username)
	assert.Equal(t, 1300, summary.TotalPoints)
	require.Len(t, summary.Kits, 2)
	// Kit list follows the points-descending row order.
	assert.Equal(t, "Sword", summary.Kits[0].Kit)
	assert.Equal(t, "Axe", summary.Kits[1].Kit)
}

func TestProfileUnknownPlayer(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Profile("Nobody")
	assert.ErrorIs(t, err, ledger.ErrPlayerNotFound)
}
