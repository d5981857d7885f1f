package main

import (
	"novasynth/cmd/cmd"
	"novasynth/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
