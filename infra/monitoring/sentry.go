// Package monitoring reports engine failures to Sentry. Every event is
// tagged with the haulshare service name and, unless disabled, errors
// caused by a canceled request context are dropped.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/haulshare/config"
	coremon "github.com/kilianp07/haulshare/core/monitoring"
)

const serviceName = "haulshare"

// NewSentryMonitor initializes the Sentry client from cfg. Without a DSN
// reporting stays off and a NopMonitor is returned.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	if err := sentry.Init(clientOptions(cfg)); err != nil {
		return nil, err
	}
	return &sentryMonitor{}, nil
}

func clientOptions(cfg config.SentryConfig) sentry.ClientOptions {
	ignoreCanceled := cfg.IgnoreCanceled == nil || *cfg.IgnoreCanceled
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
		ServerName:       serviceName,
		AttachStacktrace: true,
		BeforeSend: func(ev *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if ignoreCanceled && hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
				return nil
			}
			if ev.Tags == nil {
				ev.Tags = map[string]string{}
			}
			ev.Tags["service"] = serviceName
			return ev
		},
	}
}

type sentryMonitor struct{}

// CaptureException reports err with tags such as op, truck_id or topic.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		sentry.CaptureException(err)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

func (s *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

func (s *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
