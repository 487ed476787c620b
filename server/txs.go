package server

import (
	"context"
	"math/big"
	"time"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/launchbase/ledger-backend/api"
	"github.com/launchbase/ledger-backend/types"
	"github.com/launchbase/ledger-backend/utils"
)

const nativeDecimals = 18

// TokenTransactions returns one page of the transaction ledger, newest first.
func (s *Server) TokenTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokenID := c.Param("tokenID")
	if tokenID == "" {
		return api.Invalid.Build(c)
	}
	txType := c.QueryParam("type")
	if txType != "" && txType != types.TxTypeBuy && txType != types.TxTypeSell {
		return api.Invalid.Build(c)
	}
	pagination := getPagination(c)

	txs, total, err := s.dbClient.Transactions(ctx, &types.TxsFilter{
		TokenID:    tokenID,
		Address:    c.QueryParam("address"),
		Type:       txType,
		Pagination: pagination,
	})
	if err != nil {
		s.logger.Warn("Cannot get token transactions", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}

	return api.OK.SetData(struct {
		Page  int                       `json:"page"`
		Limit int                       `json:"limit"`
		Total uint64                    `json:"total"`
		Txs   []*types.TokenTransaction `json:"txs"`
	}{
		Page:  pagination.Skip / pagination.Limit,
		Limit: pagination.Limit,
		Total: total,
		Txs:   txs,
	}).Build(c)
}

// TokenVolume aggregates the native-side value traded over a trailing window,
// 24h by default.
func (s *Server) TokenVolume(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tokenID := c.Param("tokenID")
	if tokenID == "" {
		return api.Invalid.Build(c)
	}
	window := 24 * time.Hour
	if w := c.QueryParam("window"); w != "" {
		parsed, err := time.ParseDuration(w)
		if err != nil || parsed <= 0 {
			return api.Invalid.Build(c)
		}
		window = parsed
	}

	since := time.Now().Add(-window).Unix()
	txs, err := s.dbClient.TransactionsSince(ctx, tokenID, since)
	if err != nil {
		s.logger.Warn("Cannot get token volume", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}

	volume, err := sumNativeVolume(txs)
	if err != nil {
		s.logger.Error("Corrupt amount in transaction ledger", zap.String("tokenID", tokenID), zap.Error(err))
		return api.InternalServer.Build(c)
	}

	return api.OK.SetData(struct {
		TokenID string `json:"tokenID"`
		Window  string `json:"window"`
		Volume  string `json:"volume"`
		TxCount int    `json:"txCount"`
	}{
		TokenID: tokenID,
		Window:  window.String(),
		Volume:  volume,
		TxCount: len(txs),
	}).Build(c)
}

// sumNativeVolume adds the native-side amounts of trade rows on integers
// scaled at 18 decimals, so no precision is lost on the way through.
func sumNativeVolume(txs []*types.TokenTransaction) (string, error) {
	total := new(big.Int)
	for _, tx := range txs {
		v, err := utils.ParseUnits(tx.EthAmount, nativeDecimals)
		if err != nil {
			return "", err
		}
		total.Add(total, v)
	}
	return utils.FormatUnits(total, nativeDecimals), nil
}
