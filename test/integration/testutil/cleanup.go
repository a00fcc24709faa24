//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table the migrations create.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		"TRUNCATE TABLE login_attempts, audit_log, devices, users RESTART IDENTITY CASCADE")
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
