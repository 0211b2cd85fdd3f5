package logging

import (
	"context"
	"log/slog"
)

// SessionInfo is the recording state stamped on every record while a
// session runs.
type SessionInfo struct {
	ID          uint
	GameVersion string
	Frame       uint
	GameTime    float32
}

// Attr renders the info as a "session" group.
func (s SessionInfo) Attr() slog.Attr {
	return slog.Group("session",
		slog.Uint64("id", uint64(s.ID)),
		slog.String("gameVersion", s.GameVersion),
		slog.Uint64("frame", uint64(s.Frame)),
		slog.Float64("gameTime", float64(s.GameTime)),
	)
}

// SessionSource reports the running session. ok is false before the first
// session starts.
type SessionSource func() (info SessionInfo, ok bool)

// SessionHandler adds the current SessionInfo to each record it handles.
type SessionHandler struct {
	inner  slog.Handler
	source SessionSource
}

func NewSessionHandler(inner slog.Handler, source SessionSource) *SessionHandler {
	return &SessionHandler{inner: inner, source: source}
}

func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.source != nil {
		if info, ok := h.source(); ok {
			r.AddAttrs(info.Attr())
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{inner: h.inner.WithAttrs(attrs), source: h.source}
}

func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{inner: h.inner.WithGroup(name), source: h.source}
}
