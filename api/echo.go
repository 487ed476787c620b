// Package api
package api

import (
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"

	"github.com/launchbase/ledger-backend/cfg"
)

func Start(srv EchoServer, cfg cfg.LedgerConfig) {
	e := echo.New()

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Gzip())

	v1Gr := e.Group("/api/v1")

	bindGeneralAPIs(v1Gr, srv)
	bindLedgerAPIs(v1Gr, srv)
	bindPrivateAPIs(v1Gr, srv)

	if err := e.Start(cfg.Port); err != nil {
		panic("cannot start echo server")
	}
}
