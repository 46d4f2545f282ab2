// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with FAILOVERGUARD_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Required environment variables (unless set in the file):
//   - PRIMARY_DSN or FAILOVERGUARD_DATA_PRIMARY_SOURCE: primary replica DSN
//   - SECONDARY_DSN or FAILOVERGUARD_DATA_SECONDARY_SOURCE: secondary replica DSN
//
// Parameters:
//   - configPath: Path to the configuration file (empty means defaults + env only)
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FAILOVERGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases used by existing deployment manifests
	_ = v.BindEnv("data.primary.source", "PRIMARY_DSN", "FAILOVERGUARD_DATA_PRIMARY_SOURCE")
	_ = v.BindEnv("data.secondary.source", "SECONDARY_DSN", "FAILOVERGUARD_DATA_SECONDARY_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "FAILOVERGUARD_DATA_REDIS_ADDR")
	_ = v.BindEnv("auth.admin_token", "ADMIN_TOKEN", "FAILOVERGUARD_AUTH_ADMIN_TOKEN")
	_ = v.BindEnv("alert.webhook_url", "ALERT_WEBHOOK_URL", "FAILOVERGUARD_ALERT_WEBHOOK_URL")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &ServerHTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Primary:   replicaFrom(v, "data.primary"),
			Secondary: replicaFrom(v, "data.secondary"),
			Pool: &Pool{
				MaxIdleConns:    v.GetInt("data.pool.max_idle_conns"),
				MaxOpenConns:    v.GetInt("data.pool.max_open_conns"),
				ConnMaxLifetime: v.GetDuration("data.pool.conn_max_lifetime"),
				ConnMaxIdleTime: v.GetDuration("data.pool.conn_max_idle_time"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
			State: &State{
				Driver:   strings.ToLower(v.GetString("data.state.driver")),
				Path:     v.GetString("data.state.path"),
				RedisKey: v.GetString("data.state.redis_key"),
			},
		},
		Failover: &Failover{
			MaxFailedAttempts:   v.GetInt("failover.max_failed_attempts"),
			TickInterval:        v.GetDuration("failover.tick_interval"),
			RecoveryGracePeriod: v.GetDuration("failover.recovery_grace_period"),
			ProbeTimeout:        v.GetDuration("failover.probe_timeout"),
		},
		Alert: &Alert{
			WebhookURL:     v.GetString("alert.webhook_url"),
			ProxyURL:       v.GetString("alert.proxy_url"),
			Timeout:        v.GetDuration("alert.timeout"),
			SuppressWindow: v.GetDuration("alert.suppress_window"),
			SummaryCron:    v.GetString("alert.summary_cron"),
		},
		Auth: &Auth{
			AdminToken: v.GetString("auth.admin_token"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

func replicaFrom(v *viper.Viper, prefix string) *Replica {
	return &Replica{
		ID:     v.GetString(prefix + ".id"),
		Driver: strings.ToLower(v.GetString(prefix + ".driver")),
		Source: v.GetString(prefix + ".source"),
		Region: v.GetString(prefix + ".region"),
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 10*time.Second)

	// Replica defaults
	v.SetDefault("data.primary.id", "primary")
	v.SetDefault("data.primary.driver", "mysql")
	v.SetDefault("data.secondary.id", "secondary")
	v.SetDefault("data.secondary.driver", "mysql")
	// Note: data.primary.source and data.secondary.source are required

	v.SetDefault("data.pool.max_idle_conns", 10)
	v.SetDefault("data.pool.max_open_conns", 100)
	v.SetDefault("data.pool.conn_max_lifetime", time.Hour)
	v.SetDefault("data.pool.conn_max_idle_time", 10*time.Minute)

	// Redis is disabled unless an address is configured
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("data.state.driver", "file")
	v.SetDefault("data.state.path", "./data/failover_state.json")
	v.SetDefault("data.state.redis_key", "failover:state")

	// Controller defaults
	v.SetDefault("failover.max_failed_attempts", 3)
	v.SetDefault("failover.tick_interval", 60*time.Second)
	v.SetDefault("failover.recovery_grace_period", 300*time.Second)
	v.SetDefault("failover.probe_timeout", 5*time.Second)

	// Alert defaults
	v.SetDefault("alert.timeout", 5*time.Second)
	v.SetDefault("alert.suppress_window", 15*time.Minute)
	v.SetDefault("alert.summary_cron", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing every problem found.
func Validate(bc *Bootstrap) error {
	var problems []string

	if bc.Data == nil {
		return fmt.Errorf("invalid configuration: data section is missing")
	}

	replicas := []struct {
		name string
		r    *Replica
	}{{"primary", bc.Data.Primary}, {"secondary", bc.Data.Secondary}}

	for _, entry := range replicas {
		name, r := entry.name, entry.r
		if r == nil || r.Source == "" {
			problems = append(problems, fmt.Sprintf("data.%s.source (%s_DSN) is required", name, strings.ToUpper(name)))
			continue
		}
		if r.Driver != "mysql" && r.Driver != "postgres" {
			problems = append(problems, fmt.Sprintf("data.%s.driver must be mysql or postgres, got %q", name, r.Driver))
		}
	}

	if bc.Data.State != nil {
		switch bc.Data.State.Driver {
		case "file":
			if bc.Data.State.Path == "" {
				problems = append(problems, "data.state.path is required for the file state driver")
			}
		case "redis":
			if bc.Data.Redis == nil || bc.Data.Redis.Addr == "" {
				problems = append(problems, "data.redis.addr is required for the redis state driver")
			}
		default:
			problems = append(problems, fmt.Sprintf("data.state.driver must be file or redis, got %q", bc.Data.State.Driver))
		}
	}

	if f := bc.Failover; f != nil {
		if f.MaxFailedAttempts < 1 {
			problems = append(problems, "failover.max_failed_attempts must be >= 1")
		}
		if f.TickInterval <= 0 {
			problems = append(problems, "failover.tick_interval must be positive")
		}
		if f.ProbeTimeout <= 0 {
			problems = append(problems, "failover.probe_timeout must be positive")
		} else if f.TickInterval > 0 && f.ProbeTimeout > f.TickInterval {
			problems = append(problems, "failover.probe_timeout must not exceed failover.tick_interval")
		}
		if f.RecoveryGracePeriod < 0 {
			problems = append(problems, "failover.recovery_grace_period must not be negative")
		}
	}

	if a := bc.Alert; a != nil && a.SummaryCron != "" {
		if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(a.SummaryCron); err != nil {
			problems = append(problems, fmt.Sprintf("alert.summary_cron is invalid: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}

	return nil
}
