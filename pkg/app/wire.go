package app

// Compiled-in modules. Each registers itself with core in init.
import (
	_ "github.com/flemzord/sigbridge/internal/gateway"
	_ "github.com/flemzord/sigbridge/internal/telemetry"
	_ "github.com/flemzord/sigbridge/modules/channel/signal"
	_ "github.com/flemzord/sigbridge/modules/store/postgres"
	_ "github.com/flemzord/sigbridge/modules/store/sqlite"
)
