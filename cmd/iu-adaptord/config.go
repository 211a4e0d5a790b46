package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// Config is the on-disk daemon configuration, loaded the way the teacher's
// gnbsim.initConfig loads gnbsim.json: a flat JSON document unmarshalled
// straight into the session-shaped struct the program runs with.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	ListenPort int    `json:"listen_port"`

	// Domain names which core-side personality this daemon presents;
	// the daemon only logs it at startup.
	Domain string `json:"domain"` // "cs" or "ps"

	LogLevel string `json:"log_level"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{ListenPort: 29169, LogLevel: "info"}
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0"
	}
	return cfg, nil
}

func (c *Config) listenIP() (net.IP, error) {
	ip := net.ParseIP(c.ListenAddr)
	if ip == nil {
		return nil, fmt.Errorf("invalid listen_addr %q", c.ListenAddr)
	}
	return ip, nil
}
