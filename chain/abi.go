// Package chain
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Fixed event fragments. The ledger only ever decodes these three events:
// Transfer on the token contract, TokenBuy/TokenSell on the paired exchange.
const tokenEventsJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}],
	"name":"Transfer","type":"event"}
]`

const exchangeEventsJSON = `[
	{"anonymous":false,"inputs":[
		{"indexed":false,"name":"ethIn","type":"uint256"},
		{"indexed":false,"name":"tokenOut","type":"uint256"},
		{"indexed":false,"name":"fee","type":"uint256"},
		{"indexed":false,"name":"buyer","type":"address"}],
	"name":"TokenBuy","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":false,"name":"tokenIn","type":"uint256"},
		{"indexed":false,"name":"ethOut","type":"uint256"},
		{"indexed":false,"name":"fee","type":"uint256"},
		{"indexed":false,"name":"seller","type":"address"}],
	"name":"TokenSell","type":"event"}
]`

var (
	tokenEvents    abi.ABI
	exchangeEvents abi.ABI

	TransferTopic  common.Hash
	TokenBuyTopic  common.Hash
	TokenSellTopic common.Hash
)

func init() {
	var err error
	tokenEvents, err = abi.JSON(strings.NewReader(tokenEventsJSON))
	if err != nil {
		panic("cannot parse token events ABI: " + err.Error())
	}
	exchangeEvents, err = abi.JSON(strings.NewReader(exchangeEventsJSON))
	if err != nil {
		panic("cannot parse exchange events ABI: " + err.Error())
	}
	TransferTopic = tokenEvents.Events["Transfer"].ID
	TokenBuyTopic = exchangeEvents.Events["TokenBuy"].ID
	TokenSellTopic = exchangeEvents.Events["TokenSell"].ID
}
