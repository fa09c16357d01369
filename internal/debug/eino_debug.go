package debug

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino-ext/devops"

	"github.com/dyike/StockLens/config"
)

// EinoDebugger starts the eino visual debug server so agent runs can be
// inspected in a browser. It does nothing unless EinoDebugEnabled is set.
type EinoDebugger struct {
	config *config.Config
	init   func(ctx context.Context) error
}

func NewEinoDebugger(cfg *config.Config) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		init:   func(ctx context.Context) error { return devops.Init(ctx) },
	}
}

func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.config.EinoDebugEnabled {
		return nil
	}

	if d.config.Debug {
		log.Printf("[EinoDebug] Initializing Eino visual debug plugin on port %d", d.config.EinoDebugPort)
	}

	if err := d.init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}

	log.Printf("[EinoDebug] debug server at %s", d.GetDebugURL())
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.config.EinoDebugEnabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
