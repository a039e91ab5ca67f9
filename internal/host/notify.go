package host

import (
	"log/slog"
	"sync"
)

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(level Level, message string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch level {
	case LevelError:
		logger.Error("notification", "message", message)
	case LevelWarn:
		logger.Warn("notification", "message", message)
	default:
		logger.Info("notification", "message", message)
	}
}

// Notice is one recorded notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// NoticeRecorder keeps notifications in memory.
type NoticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *NoticeRecorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
}

// Notices returns a copy of the recorded notifications in arrival order.
func (r *NoticeRecorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
