package config

import (
	"time"

	"github.com/hostfleet/gangway/pkg/conftools"
	flag "github.com/spf13/pflag"
)

type Remote struct {
	Host        string        `json:"host"`
	User        string        `json:"user"`
	Tool        string        `json:"tool"`
	CallTimeout time.Duration `json:"call-timeout"`
}

type Deploy struct {
	StagingRoot    string `json:"staging-root"`
	DefaultRuntime string `json:"default-runtime"`
}

type Config struct {
	Deploy        Deploy `json:"deploy"`
	ListenAddress string `json:"listen-address"`
	LogFormat     string `json:"log-format"`
	LogLevel      string `json:"log-level"`
	MetricsPath   string `json:"metrics-path"`
	Remote        Remote `json:"remote"`
	ScopedTenant  string `json:"scoped-tenant"`
}

const (
	DeployDefaultRuntime = "deploy.default-runtime"
	DeployStagingRoot    = "deploy.staging-root"
	ListenAddress        = "listen-address"
	LogFormat            = "log-format"
	LogLevel             = "log-level"
	MetricsPath          = "metrics-path"
	RemoteCallTimeout    = "remote.call-timeout"
	RemoteHost           = "remote.host"
	RemoteTool           = "remote.tool"
	RemoteUser           = "remote.user"
	ScopedTenant         = "scoped-tenant"
)

func Initialize() *Config {
	conftools.Initialize("gangway")

	flag.String(ListenAddress, "127.0.0.1:8382", "IP:PORT for the tool API.")
	flag.String(LogFormat, "text", "Log format, either 'json' or 'text'.")
	flag.String(LogLevel, "info", "Logging verbosity level.")
	flag.String(MetricsPath, "/metrics", "HTTP endpoint for exposed metrics.")
	flag.String(ScopedTenant, "", "Bind every operation to this tenant. Empty enables operator mode.")

	flag.String(RemoteHost, "", "Hostname of the remote hosting platform.")
	flag.String(RemoteUser, "", "Login user on the remote platform.")
	flag.String(RemoteTool, "stackctl", "Name of the remote administrative tool.")
	flag.Duration(RemoteCallTimeout, time.Minute*2, "Timeout for a single remote call.")

	flag.String(DeployStagingRoot, ".gangway/staging", "Remote directory holding staging locations.")
	flag.String(DeployDefaultRuntime, "next", "Runtime family used when detection finds no signal.")

	return &Config{}
}
