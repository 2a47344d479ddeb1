// Package channel defines the outbound side of messaging platforms: the
// Channel interface, a name-based dispatcher and sender allow-lists.
package channel

import (
	"context"

	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/pkg/message"
)

// ServiceDispatcher is the AppContext service name of the shared *Dispatcher.
const ServiceDispatcher = "channel.dispatcher"

// Channel delivers outbound messages to one messaging platform.
// Every concrete channel module implements it and registers itself with
// the dispatcher during Provision.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error
}
