package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds analyzer configuration loaded from flags, env, or
// config file.
type Config struct {
	Input         string
	PGDSN         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProfilesFile  string
	LoadOnStart   bool
	MinConfidence float64
	Target        string
	LogLevel      string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATHENA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("load-on-start", true)
	v.SetDefault("min-confidence", 0.7)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Input:         v.GetString("in"),
		PGDSN:         v.GetString("pg-dsn"),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		ProfilesFile:  v.GetString("profiles-file"),
		LoadOnStart:   v.GetBool("load-on-start"),
		MinConfidence: v.GetFloat64("min-confidence"),
		Target:        v.GetString("target"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTarget parses a forecast target (unix seconds or RFC3339).
// An empty input means now.
func ParseTarget(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Now(), nil
	}

	if isNumeric(input) {
		secs, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(secs, 0).UTC(), nil
	}

	return time.Parse(time.RFC3339, input)
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
