package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON handler that ships every record to a Graylog
// GELF input at addr. The returned closer releases the connection.
func NewGELFHandler(addr, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}
	w.Facility = instrumentationName

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return h, w, nil
}
