// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

// Package config loads the recorder's configuration file and environment
// overrides into domain.Config, following the teacher's go.mod-declared
// viper/fsnotify/gotenv stack (no source file for this concern survived
// retrieval from autobrr-qui; the wiring below is standard idiomatic use of
// those exact libraries, not a port of teacher code — see DESIGN.md).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/dumtruck/konobangu/internal/domain"
)

// Env reports the running environment name, selecting which config/{env}.yaml
// pair is loaded (spec.md section 6).
func Env() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return v
	}
	return "development"
}

// searchDirs returns the config-directory search order of spec.md section 6:
// ${WORKING_ROOT}/config, then ${WORKING_ROOT}/apps/recorder/config, then
// ./apps/recorder/config, then ./config.
func searchDirs() []string {
	root := os.Getenv("WORKING_ROOT")
	var dirs []string
	if root != "" {
		dirs = append(dirs, filepath.Join(root, "config"), filepath.Join(root, "apps/recorder/config"))
	}
	dirs = append(dirs, filepath.Join("apps/recorder", "config"), "config")
	return dirs
}

// Load resolves the first matching {env}.local.yaml / {env}.yaml file across
// searchDirs, merges a matching .env file via gotenv, layers environment
// variable overrides, and unmarshals into a domain.Config seeded with
// defaults. onReload (optional) is invoked whenever the resolved file
// changes on disk.
func Load(onReload func(*domain.Config)) (*domain.Config, error) {
	env := Env()
	v := viper.New()
	v.SetConfigType("yaml")

	configPath, envPath := resolveFiles(env)
	if configPath == "" {
		return nil, fmt.Errorf("no config file found for env %q in %v", env, searchDirs())
	}
	v.SetConfigFile(configPath)

	if envPath != "" {
		if err := gotenv.Load(envPath); err != nil {
			log.Warn().Err(err).Str("path", envPath).Msg("config: failed to load .env file")
		}
	}

	setDefaults(v)
	v.SetEnvPrefix("RECORDER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", configPath, err)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	if onReload != nil {
		v.WatchConfig()
		v.OnConfigChange(func(fsnotify.Event) {
			reloaded, err := unmarshal(v)
			if err != nil {
				log.Error().Err(err).Msg("config: reload failed, keeping previous configuration")
				return
			}
			log.Info().Msg("config: reloaded from disk")
			onReload(reloaded)
		})
	}

	return cfg, nil
}

func unmarshal(v *viper.Viper) (*domain.Config, error) {
	cfg := &domain.Config{
		Task:       domain.DefaultTaskConfig(),
		Mikan:      domain.DefaultMikanConfig(),
		Downloader: domain.DefaultDownloaderConfig(),
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Version = version()
	return cfg, nil
}

// resolveFiles implements the "{env}.local.yaml → {env}.yaml" precedence per
// search directory, first hit wins; the .env search order mirrors it.
func resolveFiles(env string) (configPath, envPath string) {
	for _, dir := range searchDirs() {
		for _, name := range []string{env + ".local.yaml", env + ".yaml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				if envPath == "" {
					envPath = firstExisting(filepath.Join(dir, env+".local.env"), filepath.Join(dir, env+".env"))
				}
				return candidate, envPath
			}
		}
	}
	return "", ""
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5555)
	v.SetDefault("logLevel", "info")
	v.SetDefault("dataDir", "./data")
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", 5556)
	v.SetDefault("databaseSslMode", "disable")
	v.SetDefault("databaseConnectTimeout", 10*time.Second)
	v.SetDefault("databaseMaxOpenConns", 25)
	v.SetDefault("databaseConnMaxLifetime", 5*time.Minute)
}

// version resolves an informational build identifier from BUILD_SHA,
// falling back to GITHUB_SHA per spec.md section 6.
func version() string {
	if v := os.Getenv("BUILD_SHA"); v != "" {
		return v
	}
	if v := os.Getenv("GITHUB_SHA"); v != "" {
		return v
	}
	return "dev"
}
