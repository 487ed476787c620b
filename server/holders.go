package server

import (
	"context"
	"strconv"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/api"
	"github.com/launchbase/ledger-backend/types"
)

// TokenHolders returns one page of the holder ledger ordered by balance
// descending.
func (s *Server) TokenHolders(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokenID := c.Param("tokenID")
	if tokenID == "" {
		return api.Invalid.Build(c)
	}
	pagination := getPagination(c)

	holders, total, err := s.dbClient.Holders(ctx, &types.HolderFilter{
		TokenID:    tokenID,
		Address:    c.QueryParam("address"),
		Pagination: pagination,
	})
	if err != nil {
		s.logger.Warn("Cannot get token holders", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}

	return api.OK.SetData(struct {
		Page    int             `json:"page"`
		Limit   int             `json:"limit"`
		Total   uint64          `json:"total"`
		Holders []*types.Holder `json:"holders"`
	}{
		Page:    pagination.Skip / pagination.Limit,
		Limit:   pagination.Limit,
		Total:   total,
		Holders: holders,
	}).Build(c)
}

// TokenHolderCount serves the holder total, cache first.
func (s *Server) TokenHolderCount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokenID := c.Param("tokenID")
	if tokenID == "" {
		return api.Invalid.Build(c)
	}

	count, err := s.cacheClient.HolderCount(ctx, tokenID)
	if err != nil {
		count, err = s.dbClient.HolderCount(ctx, tokenID)
		if err != nil {
			s.logger.Warn("Cannot count token holders", zap.String("tokenID", tokenID), zap.Error(err))
			return api.InternalServer.Build(c)
		}
		if err := s.cacheClient.UpdateHolderCount(ctx, tokenID, count); err != nil {
			s.logger.Debug("Cannot cache holder count", zap.Error(err))
		}
	}

	return api.OK.SetData(struct {
		TokenID string `json:"tokenID"`
		Total   uint64 `json:"total"`
	}{
		TokenID: tokenID,
		Total:   count,
	}).Build(c)
}

func getPagination(c echo.Context) *types.Pagination {
	var page, limit int
	var err error
	page, err = strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		page = 0
	}
	limit, err = strconv.Atoi(c.QueryParam("limit"))
	if err != nil {
		limit = 50
	}
	pagination := &types.Pagination{
		Skip:  page * limit,
		Limit: limit,
	}
	pagination.Sanitize()
	return pagination
}
