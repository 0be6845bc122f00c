package config

import (
	"context"
	"net"
	"strconv"
)

type ServerConfig struct {
	Host  string `env:"API_HOST" envDefault:"0.0.0.0"`
	Port  int    `env:"API_PORT" envDefault:"8000"`
	Debug bool   `env:"DEBUG" envDefault:"false"`
}

func NewServerConfig(ctx context.Context) *ServerConfig {
	return mustParse[ServerConfig](ctx, "Server")
}

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
