package store

import (
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"

	"github.com/uharev-ux/dex-dump-screener/internal/model"
)

// UpsertToken inserts or replaces a token row by its address primary key.
func (s *Store) UpsertToken(token *model.Token) error {
	if token.Address == "" {
		return errors.New("upsert token: empty address")
	}
	if token.ChainID == "" {
		token.ChainID = model.ChainSolana
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"chain_id", "symbol", "display_name"}),
	}).Create(token).Error
	return errors.Wrap(err, "upsert token")
}

// IterateTokens returns every token row.
func (s *Store) IterateTokens() ([]model.Token, error) {
	var tokens []model.Token
	err := s.db.Order("address").Find(&tokens).Error
	return tokens, errors.Wrap(err, "iterate tokens")
}
