package conf

import "time"

// Bootstrap is the root configuration loaded once at startup.
type Bootstrap struct {
	Server   *Server
	Data     *Data
	Failover *Failover
	Alert    *Alert
	Auth     *Auth
	Log      *Log
}

// Server holds transport settings.
type Server struct {
	HTTP *ServerHTTP
}

// ServerHTTP configures the status/metrics HTTP listener.
type ServerHTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds replica, Redis and state store settings.
type Data struct {
	Primary   *Replica
	Secondary *Replica
	Pool      *Pool
	Redis     *Redis
	State     *State
}

// Replica describes one database endpoint. It is never mutated after startup.
type Replica struct {
	ID     string
	Driver string // mysql or postgres
	Source string // DSN
	Region string
}

// Pool tunes the connection pool of both replica handles.
type Pool struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Redis configures the optional Redis client.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// State selects where the failover state record is persisted.
type State struct {
	Driver   string // file or redis
	Path     string
	RedisKey string
}

// Failover holds the controller thresholds.
type Failover struct {
	MaxFailedAttempts   int
	TickInterval        time.Duration
	RecoveryGracePeriod time.Duration
	ProbeTimeout        time.Duration
}

// Alert configures the alert dispatcher.
type Alert struct {
	WebhookURL     string
	ProxyURL       string
	Timeout        time.Duration
	SuppressWindow time.Duration
	SummaryCron    string
}

// Auth holds the administrative credential for privileged endpoints.
type Auth struct {
	AdminToken string
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
