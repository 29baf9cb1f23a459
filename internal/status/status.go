// Package status provides the diagnostic sink used throughout ttlcache in
// place of a hard dependency on any particular logging setup. It mirrors
// the role lwan_status_* played in the original C core: a place callbacks
// and background workers report problems without ever aborting the
// process.
package status

import (
	"fmt"

	"go.uber.org/zap"
)

// Channel is the diagnostic sink every core component takes at
// construction time. No call on Channel is allowed to block or panic the
// caller; it is a reporting surface, not a control surface.
type Channel interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// Perror logs op failing with err, mirroring lwan_status_perror's
	// "operation: reason" convention.
	Perror(op string, err error)
}

// zapChannel adapts a *zap.SugaredLogger to Channel.
type zapChannel struct {
	l *zap.SugaredLogger
}

// New wraps a zap logger as a Channel.
func New(l *zap.Logger) Channel {
	return &zapChannel{l: l.Sugar()}
}

func (c *zapChannel) Debugf(format string, args ...any) { c.l.Debugf(format, args...) }
func (c *zapChannel) Infof(format string, args ...any)  { c.l.Infof(format, args...) }
func (c *zapChannel) Warnf(format string, args ...any)  { c.l.Warnf(format, args...) }
func (c *zapChannel) Errorf(format string, args ...any) { c.l.Errorf(format, args...) }

func (c *zapChannel) Perror(op string, err error) {
	c.l.Warnw(fmt.Sprintf("%s failed", op), "error", err)
}

// noop discards everything. Used by tests and callers that don't want to
// wire a real logger.
type noop struct{}

// Noop returns a Channel that discards all messages.
func Noop() Channel { return noop{} }

func (noop) Debugf(string, ...any) {}
func (noop) Infof(string, ...any)  {}
func (noop) Warnf(string, ...any)  {}
func (noop) Errorf(string, ...any) {}
func (noop) Perror(string, error)  {}

// NewProduction builds a zap production logger wrapped as a Channel, or
// falls back to Noop if the logger cannot be constructed.
func NewProduction() Channel {
	l, err := zap.NewProduction()
	if err != nil {
		return Noop()
	}
	return New(l)
}

// NewDevelopment builds a zap development logger (human-readable, colored
// level names) wrapped as a Channel.
func NewDevelopment() Channel {
	l, err := zap.NewDevelopment()
	if err != nil {
		return Noop()
	}
	return New(l)
}
