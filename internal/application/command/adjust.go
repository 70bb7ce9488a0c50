package command

import (
	"log/slog"

	"github.com/board-hub/community-board/internal/domain/post"
)

// scheduleAdjust hands a counter change to the updater. Failures only mean
// the updater is shutting down; reconciliation repairs the counter later.
func scheduleAdjust(adjuster post.CounterAdjuster, logger *slog.Logger, postID int64, field post.Field, delta int) {
	if err := adjuster.Adjust(postID, field, delta); err != nil {
		logger.Warn("counter adjustment not scheduled",
			"post_id", postID,
			"field", field.String(),
			"delta", delta,
			"error", err,
		)
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
