package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL string

	Controller string
	Factory    string
	Funds      []string

	WrappedNative   string
	ReferencePool   string
	ReferenceStable string
	StableTokens    []string
	QuoteFeeTier    uint32
	RewardToken     string

	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Confirmations     uint64
	PollInterval      time.Duration
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration

	SweepCutoverBlock uint64

	PGDSN    string
	AuditOut string
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUNDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("quote-fee-tier", uint32(3000))
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("confirmations", uint64(12))
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("sweep-cutover-block", uint64(10388255))
	v.SetDefault("audit-out", "./data/audit.jsonl")
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
		RPCURL:            v.GetString("rpc"),
		Controller:        v.GetString("controller"),
		Factory:           v.GetString("factory"),
		Funds:             getStringSlice(v, "fund"),
		WrappedNative:     v.GetString("wrapped-native"),
		ReferencePool:     v.GetString("reference-pool"),
		ReferenceStable:   v.GetString("reference-stable"),
		StableTokens:      getStringSlice(v, "stable-token"),
		QuoteFeeTier:      v.GetUint32("quote-fee-tier"),
		RewardToken:       v.GetString("reward-token"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Confirmations:     v.GetUint64("confirmations"),
		PollInterval:      v.GetDuration("poll-interval"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		SweepCutoverBlock: v.GetUint64("sweep-cutover-block"),
		PGDSN:             v.GetString("pg-dsn"),
		AuditOut:          v.GetString("audit-out"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
