package main

import (
	"aegira/internal/repository"
	"aegira/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
