package ports

import "github.com/samirrijal/voltroute/internal/core/domain"

// RenderTarget is the container a map surface renders into, typically a browser
// connected over a WebSocket.
type RenderTarget interface {
	ID() string
	Attached() bool
	Send(cmd domain.RenderCommand) error
}
