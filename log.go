package main

import (
	"log"
	"os"
)

// logger is a small leveled wrapper around the standard logger,
// matching the teacher's unadorned fmt/log style rather than pulling
// in a structured logging library nothing else in the pack depends on.
var logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)

func logInfo(format string, args ...any) {
	logger.Printf("[isi] INFO  "+format, args...)
}

func logWarn(format string, args ...any) {
	logger.Printf("[isi] WARN  "+format, args...)
}

func logError(format string, args ...any) {
	logger.Printf("[isi] ERROR "+format, args...)
}
