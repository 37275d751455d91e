package slogpretty

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_WritesAttrs(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.With(slog.String("op", "service.CheckoutService.PlaceOrder")).
		Error("failed to create order", slog.Any("error", errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "ERROR:")
	assert.Contains(t, out, "failed to create order")
	assert.Contains(t, out, `"op": "service.CheckoutService.PlaceOrder"`)
	assert.Contains(t, out, `"error": "boom"`)
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
