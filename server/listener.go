package server

import (
	"context"
	"errors"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/api"
	"github.com/launchbase/ledger-backend/types"
)

// StartTokenListener subscribes a token's contract pair to the live event
// stream. Starting a token that is already listening succeeds without side
// effects.
func (s *Server) StartTokenListener(c echo.Context) error {
	if !s.authorized(c) {
		return api.Unauthorized.Build(c)
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokenID := c.Param("tokenID")
	if s.handler.IsListening(tokenID) {
		return api.OK.Build(c)
	}
	token, err := s.cacheClient.TokenInfo(ctx, tokenID)
	if err != nil {
		token, err = s.dbClient.Token(ctx, tokenID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return api.NotFound.Build(c)
			}
			s.logger.Warn("Cannot load token", zap.String("tokenID", tokenID), zap.Error(err))
			return api.InternalServer.Build(c)
		}
		if err := s.cacheClient.UpdateTokenInfo(ctx, token); err != nil {
			s.logger.Debug("Cannot cache token descriptor", zap.Error(err))
		}
	}

	if err := s.handler.StartListening(token); err != nil {
		s.logger.Error("Cannot start token listener", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}
	return api.OK.Build(c)
}

// StopTokenListener tears down a token's live subscriptions.
func (s *Server) StopTokenListener(c echo.Context) error {
	if !s.authorized(c) {
		return api.Unauthorized.Build(c)
	}

	tokenID := c.Param("tokenID")
	if err := s.handler.StopListening(tokenID); err != nil {
		if errors.Is(err, types.ErrListenerNotFound) {
			return api.NotFound.Build(c)
		}
		s.logger.Error("Cannot stop token listener", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}
	return api.OK.Build(c)
}

// BootstrapListeners brings up listeners for every active token. Called by
// the listener role at startup.
func (s *Server) BootstrapListeners(ctx context.Context) error {
	return s.handler.Bootstrap(ctx)
}
