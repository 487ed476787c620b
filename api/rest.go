// Package api
package api

import (
	"github.com/labstack/echo"
)

// EchoServer define all API expose
type EchoServer interface {
	// General
	Ping(c echo.Context) error
	ServerStatus(c echo.Context) error

	// Ledger reads
	TokenHolders(c echo.Context) error
	TokenHolderCount(c echo.Context) error
	TokenTransactions(c echo.Context) error
	TokenVolume(c echo.Context) error

	IPrivate
}

// IPrivate is the admin sector. Every handler behind it checks the request
// secret before acting.
type IPrivate interface {
	SeedHolders(c echo.Context) error
	SeedTransactions(c echo.Context) error
	StartTokenListener(c echo.Context) error
	StopTokenListener(c echo.Context) error
}

type restDefinition struct {
	method      string
	path        string
	fn          func(c echo.Context) error
	middlewares []echo.MiddlewareFunc
}

func bindGeneralAPIs(gr *echo.Group, srv EchoServer) {
	apis := []restDefinition{
		{
			method:      echo.GET,
			path:        "/ping",
			fn:          srv.Ping,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/status",
			fn:          srv.ServerStatus,
			middlewares: nil,
		},
	}
	for _, api := range apis {
		gr.Add(api.method, api.path, api.fn, api.middlewares...)
	}
}

func bindLedgerAPIs(gr *echo.Group, srv EchoServer) {
	apis := []restDefinition{
		{
			method: echo.GET,
			// Query params: ?page=0&limit=50
			path:        "/tokens/:tokenID/holders",
			fn:          srv.TokenHolders,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/tokens/:tokenID/holders/count",
			fn:          srv.TokenHolderCount,
			middlewares: nil,
		},
		{
			method: echo.GET,
			// Query params: ?page=0&limit=50&address=0x&type=(buy, sell)
			path:        "/tokens/:tokenID/transactions",
			fn:          srv.TokenTransactions,
			middlewares: nil,
		},
		{
			method: echo.GET,
			// Query params: [?window=24h]
			path:        "/tokens/:tokenID/volume",
			fn:          srv.TokenVolume,
			middlewares: nil,
		},
	}
	for _, api := range apis {
		gr.Add(api.method, api.path, api.fn, api.middlewares...)
	}
}

func bindPrivateAPIs(gr *echo.Group, srv EchoServer) {
	apis := []restDefinition{
		{
			method:      echo.POST,
			path:        "/admin/seed/holders",
			fn:          srv.SeedHolders,
			middlewares: nil,
		},
		{
			method:      echo.POST,
			path:        "/admin/seed/transactions",
			fn:          srv.SeedTransactions,
			middlewares: nil,
		},
		{
			method:      echo.POST,
			path:        "/admin/tokens/:tokenID/listen",
			fn:          srv.StartTokenListener,
			middlewares: nil,
		},
		{
			method:      echo.DELETE,
			path:        "/admin/tokens/:tokenID/listen",
			fn:          srv.StopTokenListener,
			middlewares: nil,
		},
	}
	for _, api := range apis {
		gr.Add(api.method, api.path, api.fn, api.middlewares...)
	}
}
