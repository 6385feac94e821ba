package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the resthook store.
// It can be registered with an application's own orchestrator.
var Migrations = migrate.NewGroup("resthook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_resthook_subscriptions",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS resthook_subscriptions (
    id          TEXT PRIMARY KEY,
    owner       TEXT NOT NULL,
    event       VARCHAR(64) NOT NULL,
    target      VARCHAR(255) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_resthook_subscriptions_event ON resthook_subscriptions (event);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS resthook_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "index_resthook_subscriptions_owner",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE INDEX IF NOT EXISTS idx_resthook_subscriptions_event_owner
    ON resthook_subscriptions (event, owner, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP INDEX IF EXISTS idx_resthook_subscriptions_event_owner`)
				return err
			},
		},
	)
}
