package main

import (
	"github.com/dwarvesf/escrow-history/internal/server"
)

// @title Escrow History API
// @version 1.0
// @description Rebuilds stablecoin deposit and withdrawal history of escrow accounts on EVM chains.
// @BasePath /api/v1
func main() {
	server.Init()
}
