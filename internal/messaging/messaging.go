// Package messaging delivers room announcements outside the websocket
// channel. The default sink writes them to the log, which is enough for
// local runs and tests; a chat-bot transport can replace it without the
// rooms noticing.
package messaging

import "go.uber.org/zap"

// LogNotifier prints announcements through the server logger.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Notify(gameID string, groupID int64, text string) {
	n.log.Info("announcement",
		zap.String("gameID", gameID),
		zap.Int64("groupID", groupID),
		zap.String("text", text),
	)
}
