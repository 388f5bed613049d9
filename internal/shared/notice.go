package shared

import (
	"log/slog"
	"sync"
)

// Notice kinds rendered as toast styles.
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice represents a one-time user facing notification.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notifier receives notices produced by domain operations.
type Notifier interface {
	Notify(n Notice)
}

// NoticeLog buffers notices until the caller pops them.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
	logger  *slog.Logger
}

// NewNoticeLog constructs a NoticeLog. Logger may be nil.
func NewNoticeLog(logger *slog.Logger) *NoticeLog {
	return &NoticeLog{logger: logger}
}

// Notify appends the notice.
func (l *NoticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
	if l.logger != nil {
		l.logger.Debug("notice", slog.String("kind", n.Kind), slog.String("message", n.Message))
	}
}

// Pop returns buffered notices and clears the buffer.
func (l *NoticeLog) Pop() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

// Discard drops every notice.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(Notice) {}
