package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision(), only when the module
// has an entry in the config file.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after
// instantiation: defaults, opening resources, registering services.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration.
// Called after Provision(). Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that bind to other modules' services
// or open listeners. Called once every module is provisioned.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}

// HealthChecker is implemented by modules that can report on a backing
// resource. Modules publish it as a service named "health.<module id>";
// the gateway's /health endpoint polls them.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthServicePrefix prefixes the service names of HealthCheckers.
const HealthServicePrefix = "health."
