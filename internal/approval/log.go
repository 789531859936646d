package approval

import (
	"context"
	"log/slog"
)

// LogChannel writes approval requests to the log instead of delivering them.
// Used when no webhook bridge is configured: operators can still approve by
// copying the token from the log into the resolve endpoint.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Dispatch(_ context.Context, req Request) error {
	c.logger.Info("approval request (no webhook configured)",
		"channel_id", req.ChannelID,
		"player_id", req.PlayerID,
		"display_name", req.DisplayName,
		"token", req.Token,
		"expires_in_secs", req.ExpiresInSecs)
	return nil
}
