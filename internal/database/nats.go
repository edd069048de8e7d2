package database

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/edutrilha/classe-api/internal/config"
)

// ConnectNATS dials the configured NATS server. The connection reconnects
// automatically so transient broker outages do not take the API down.
func ConnectNATS(cfg config.Config) (*nats.Conn, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("nats url must be provided")
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name(cfg.AppName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return conn, nil
}
