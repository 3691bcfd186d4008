// Package alerts evaluates per-coin threshold rules against market snapshots
// and fires the user's one-shot price alerts. Notifications are delivered to
// Slack, Teams, ntfy or generic HTTP webhooks.
package alerts
