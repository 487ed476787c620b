package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/types"
)

// ITokens reads the token descriptor feed. Descriptors are produced by the
// token-creation workflow and are read-only to the ledger core.
type ITokens interface {
	createTokensCollectionIndexes() []mongo.IndexModel
	Token(ctx context.Context, id string) (*types.Token, error)
	Tokens(ctx context.Context) ([]*types.Token, error)
	ActiveTokens(ctx context.Context) ([]*types.Token, error)
	UpsertToken(ctx context.Context, token *types.Token) error
}

func (m *mongoDB) createTokensCollectionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.M{"id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"isActive": 1}},
	}
}

func (m *mongoDB) Token(ctx context.Context, id string) (*types.Token, error) {
	var token types.Token
	err := m.wrapper.C(cTokens).FindOne(bson.M{"id": id}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (m *mongoDB) Tokens(ctx context.Context) ([]*types.Token, error) {
	return m.findTokens(ctx, bson.M{})
}

func (m *mongoDB) ActiveTokens(ctx context.Context) ([]*types.Token, error) {
	return m.findTokens(ctx, bson.M{"isActive": true})
}

func (m *mongoDB) UpsertToken(ctx context.Context, token *types.Token) error {
	if _, err := m.wrapper.C(cTokens).Upsert(bson.M{"id": token.ID}, token); err != nil {
		return err
	}
	return nil
}

func (m *mongoDB) findTokens(ctx context.Context, crit bson.M) ([]*types.Token, error) {
	var tokens []*types.Token
	cursor, err := m.wrapper.C(cTokens).Find(crit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			m.logger.Warn("Error when close cursor", zap.Error(err))
		}
	}()
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
