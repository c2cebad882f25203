package testutil

import (
	"context"

	"github.com/flexprice/staffdesk/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetRequestID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	ctx = types.SetSessionID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SESSION))
	return ctx
}
