package lookup

import (
	"errors"
	"fmt"

	"github.com/oaksmc/ranktiers-bot/ledger"
	"github.com/oaksmc/ranktiers-bot/links"
	"github.com/oaksmc/ranktiers-bot/ranking"
	"go.uber.org/zap"
)

var ErrInvalidQuery = errors.New("provide a game-account name or an identity id")

type WhoisResult struct {
	GameName   string `json:"game_name"`
	IdentityID string `json:"identity_id"`
}

// Service answers whois and profile queries; it only reads the link store and
// the ledger.
type Service struct {
	Links   *links.Store
	Ranking *ranking.Aggregator
	Logger  *zap.SugaredLogger
}

func NewService(linkStore *links.Store, aggregator *ranking.Aggregator, logger *zap.SugaredLogger) *Service {
	return &Service{
		Links:   linkStore,
		Ranking: aggregator,
		Logger:  logger,
	}
}

// Whois resolves a link from either side. When both inputs are supplied the
// game-account name takes precedence and the identity id is ignored.
func (svc *Service) Whois(gameName, identityID string) (*WhoisResult, error) {
	switch {
	case gameName != "":
		id, err := svc.Links.FindByName(gameName)
		if err != nil {
			return nil, err
		}
		return &WhoisResult{GameName: gameName, IdentityID: id}, nil
	case identityID != "":
		name, err := svc.Links.FindByIdentity(identityID)
		if err != nil {
			return nil, err
		}
		return &WhoisResult{GameName: name, IdentityID: identityID}, nil
	default:
		return nil, ErrInvalidQuery
	}
}

// Profile returns one player's aggregated kit list, same deduplication rule as
// the leaderboard.
func (svc *Service) Profile(username string) (*ranking.PlayerSummary, error) {
	rows, err := svc.Ranking.PlayerRows(username)
	if err != nil {
		return nil, err
	}
	summaries := ranking.Aggregate(rows)
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPlayerNotFound, username)
	}
	return &summaries[0], nil
}
