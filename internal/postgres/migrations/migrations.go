// Package migrations embeds the SQL schema files applied by the migrate command.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Files lists the migrations in application order.
var Files = []string{
	"001_create_posts.sql",
	"002_create_jobs.sql",
	"003_create_notifications.sql",
	"004_create_trending_topics.sql",
}
