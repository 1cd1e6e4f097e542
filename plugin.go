package svchost

import (
	"context"

	"github.com/bft-labs/svchost/internal/ports"
	"github.com/bft-labs/svchost/pkg/log"
)

// Controller is what a plugin may ask of the hosted service.
type Controller = ports.Controller

// PluginConfig is passed to every plugin when the host starts.
type PluginConfig struct {
	ServiceName string
	Controller  Controller
	Logger      log.Logger
}

// Plugin extends a Host with work that runs alongside the service, such as
// restarting it when a file changes. Plugins are initialized in
// registration order before the service is created and shut down in
// reverse order after it reaches a terminal state.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op Initialize and Shutdown for embedding.
type BasePlugin struct {
	PluginName string
}

func (b BasePlugin) Name() string                                 { return b.PluginName }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
