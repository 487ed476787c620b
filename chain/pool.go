// Package chain
package chain

import (
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Pool caches one live RPC connection per endpoint URL. It is constructed
// once at process start and passed by reference to dependents.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*ethclient.Client

	logger *zap.Logger
}

func NewPool(logger *zap.Logger) *Pool {
	return &Pool{
		clients: make(map[string]*ethclient.Client),
		logger:  logger.With(zap.String("component", "chain.Pool")),
	}
}

// Client returns the cached connection for rpcURL, dialing on first use.
// At most one connection object exists per distinct URL within a process.
func (p *Pool) Client(rpcURL string) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[rpcURL]; ok {
		return c, nil
	}
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Dialed RPC endpoint", zap.String("url", rpcURL))
	p.clients[rpcURL] = c
	return c, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}
