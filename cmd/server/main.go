package main

import (
	"github.com/pendulum-chain/vortex-sub005/internal/server"
)

// @title Ramp Orchestration API
// @version 1.0
// @description Drives crypto to fiat and fiat to crypto ramps through Pendulum.
// @BasePath /api/v1
func main() {
	server.Init()
}
