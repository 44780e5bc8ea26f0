package main

import (
	"github.com/Conflux-Chain/gas-estimation/cmd"
	"github.com/Conflux-Chain/gas-estimation/config"
)

func main() {
	// ensure configuration initialized at first.
	config.Init()

	cmd.Execute()
}
