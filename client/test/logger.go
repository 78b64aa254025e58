package test

import (
	"github.com/hijra-meet/hijra-meet/client/logger"
)

func NewLogger() logger.Logger {
	return logger.NewFromEnv("MEET_LOG")
}
