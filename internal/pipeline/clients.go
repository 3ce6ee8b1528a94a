package pipeline

import (
	"context"
	"time"

	"renos/internal/compose"
	"renos/internal/dispatch"
	"renos/internal/guard"
	"renos/internal/llm"
	"renos/internal/store"
	"renos/pkg/breaker"
)

// Every external dependency runs behind its own circuit breaker so one
// failing backend does not flood the others with doomed calls.
const (
	breakerLLM      = "llm"
	breakerMailer   = "mailer"
	breakerCalendar = "calendar"
	breakerDatabase = "database"
)

type guardedLLM struct {
	registry *breaker.Registry
	inner    llm.Provider
}

// GuardLLM wraps an LLM provider in the shared breaker registry.
func GuardLLM(registry *breaker.Registry, inner llm.Provider) llm.Provider {
	if registry == nil {
		return inner
	}
	return &guardedLLM{registry: registry, inner: inner}
}

func (g *guardedLLM) CompleteChat(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	var out string
	err := g.registry.Execute(ctx, breakerLLM, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.inner.CompleteChat(ctx, msgs, opts)
		return callErr
	})
	return out, err
}

type guardedMailer struct {
	registry *breaker.Registry
	inner    dispatch.Mailer
}

func GuardMailer(registry *breaker.Registry, inner dispatch.Mailer) dispatch.Mailer {
	if registry == nil {
		return inner
	}
	return &guardedMailer{registry: registry, inner: inner}
}

func (g *guardedMailer) SendMail(ctx context.Context, to, subject, body, threadRef string) error {
	return g.registry.Execute(ctx, breakerMailer, func(ctx context.Context) error {
		return g.inner.SendMail(ctx, to, subject, body, threadRef)
	})
}

type guardedBusy struct {
	registry *breaker.Registry
	inner    compose.BusyLookup
}

func GuardBusyLookup(registry *breaker.Registry, inner compose.BusyLookup) compose.BusyLookup {
	if registry == nil || inner == nil {
		return inner
	}
	return &guardedBusy{registry: registry, inner: inner}
}

func (g *guardedBusy) Busy(ctx context.Context, from, to time.Time) ([]compose.Interval, error) {
	var out []compose.Interval
	err := g.registry.Execute(ctx, breakerCalendar, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.inner.Busy(ctx, from, to)
		return callErr
	})
	return out, err
}

type guardedLookups struct {
	registry  *breaker.Registry
	quotes    guard.QuoteLookup
	customers guard.CustomerLookup
}

// GuardLookups wraps the duplicate guard's database lookups. A tripped
// breaker surfaces as a lookup error, which the guard treats as a
// block.
func GuardLookups(registry *breaker.Registry, quotes guard.QuoteLookup, customers guard.CustomerLookup) (guard.QuoteLookup, guard.CustomerLookup) {
	if registry == nil {
		return quotes, customers
	}
	g := &guardedLookups{registry: registry, quotes: quotes, customers: customers}
	return g, g
}

func (g *guardedLookups) LastQuote(ctx context.Context, email string) (*store.QuoteRecord, error) {
	var out *store.QuoteRecord
	err := g.registry.Execute(ctx, breakerDatabase, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.quotes.LastQuote(ctx, email)
		return callErr
	})
	return out, err
}

func (g *guardedLookups) CustomerByEmail(ctx context.Context, email string) (*store.CustomerRecord, error) {
	var out *store.CustomerRecord
	err := g.registry.Execute(ctx, breakerDatabase, func(ctx context.Context) error {
		var callErr error
		out, callErr = g.customers.CustomerByEmail(ctx, email)
		return callErr
	})
	return out, err
}
