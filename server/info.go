package server

import (
	"context"
	"strings"

	"github.com/labstack/echo"

	"github.com/launchbase/ledger-backend/api"
)

func (s *Server) Ping(c echo.Context) error {
	return api.OK.Build(c)
}

func (s *Server) ServerStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	head, err := s.node.BlockNumber(ctx)
	if err != nil {
		return api.InternalServer.Build(c)
	}

	return api.OK.SetData(struct {
		LatestBlock uint64 `json:"latestBlock"`
		Listening   int    `json:"listening"`
	}{
		LatestBlock: head,
		Listening:   s.handler.ListenerCount(),
	}).Build(c)
}

// authorized gates the admin sector with the shared request secret.
func (s *Server) authorized(c echo.Context) bool {
	if s.httpRequestSecret == "" {
		return false
	}
	return strings.Contains(c.Request().Header.Get("Authorization"), s.httpRequestSecret)
}
