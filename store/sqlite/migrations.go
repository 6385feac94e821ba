package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the resthook store (SQLite).
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
    event       TEXT NOT NULL,
    target      TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_resthook_subscriptions_event_owner
    ON resthook_subscriptions (event, owner, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS resthook_subscriptions`)
				return err
			},
		},
	)
}
