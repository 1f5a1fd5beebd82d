// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumtruck/konobangu/internal/domain"
)

// ConfigureLogging sets the global zerolog logger per cfg: console output
// always, plus a rotating file writer via lumberjack when LogPath is set
// (both teacher-declared dependencies; see DESIGN.md).
func ConfigureLogging(cfg *domain.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	if cfg.LogPath != "" {
		maxSize := cfg.LogMaxSize
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := cfg.LogMaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Caller().Logger()
}
