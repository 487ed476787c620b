package server

import (
	"context"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/api"
	"github.com/launchbase/ledger-backend/types"
)

// SeedHolders rebuilds the holder ledger of every active token from
// historical logs. The work runs on the seed pool; the request returns as
// soon as every token is queued.
func (s *Server) SeedHolders(c echo.Context) error {
	if !s.authorized(c) {
		return api.Unauthorized.Build(c)
	}
	return s.seed(c, types.StreamHolders)
}

// SeedTransactions rebuilds the transaction ledger of every active token.
func (s *Server) SeedTransactions(c echo.Context) error {
	if !s.authorized(c) {
		return api.Unauthorized.Build(c)
	}
	return s.seed(c, types.StreamTransactions)
}

func (s *Server) seed(c echo.Context, stream string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokens, err := s.dbClient.ActiveTokens(ctx)
	if err != nil {
		s.logger.Warn("Cannot load active tokens", zap.Error(err))
		return api.InternalServer.Build(c)
	}
	if id := c.QueryParam("tokenID"); id != "" {
		token, err := s.dbClient.Token(ctx, id)
		if err != nil {
			return api.NotFound.Build(c)
		}
		tokens = []*types.Token{token}
	}

	for _, token := range tokens {
		token := token
		err := s.seedPool.Submit(func() {
			var err error
			var last uint64
			if stream == types.StreamHolders {
				last, err = s.handler.BackfillHolders(context.Background(), token)
			} else {
				last, err = s.handler.BackfillTrades(context.Background(), token)
			}
			if err != nil {
				s.logger.Error("Seed run failed", zap.String("tokenID", token.ID),
					zap.String("stream", stream), zap.Uint64("lastBlock", last), zap.Error(err))
				return
			}
			s.logger.Info("Seed run finished", zap.String("tokenID", token.ID),
				zap.String("stream", stream), zap.Uint64("lastBlock", last))
		})
		if err != nil {
			s.logger.Warn("Cannot queue seed run", zap.String("tokenID", token.ID), zap.Error(err))
			return api.InternalServer.Build(c)
		}
	}

	return api.OK.SetData(struct {
		Stream string `json:"stream"`
		Queued int    `json:"queued"`
	}{
		Stream: stream,
		Queued: len(tokens),
	}).Build(c)
}
