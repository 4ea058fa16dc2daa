package main

import (
	"context"

	"novelview-backend/cmd/novelview/commands"
	"novelview-backend/lib/telemetry"
)

func main() {
	ctx := context.Background()
	telemetry.SetupFromEnv(ctx, "novelview")
	defer telemetry.Shutdown(ctx)
	commands.ExecuteContext(ctx)
}
