// Package feed fetches externally sourced data and degrades to the last
// good value or a fallback when the source misbehaves.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Freshness labels where an Outcome's value came from.
type Freshness string

const (
	Fresh    Freshness = "fresh"
	Stale    Freshness = "stale"
	Fallback Freshness = "fallback"
)

// Outcome is the typed result of Fetch. Err is set when Freshness is not
// Fresh and explains why.
type Outcome struct {
	Value     string
	Freshness Freshness
	FetchedAt time.Time // time of the fetch that produced Value; zero for fallback
	Err       error
}

// Config configures a Feed.
type Config struct {
	URL       string
	Requester Requester
	Decoder   Decoder
	Fallback  string
	Now       func() time.Time
	Logger    zerolog.Logger
}

type cacheEntry struct {
	value     string
	fetchedAt time.Time
}

// Feed is a pull-based accessor with an in-memory last-known-good cache.
type Feed struct {
	url      string
	req      Requester
	decode   Decoder
	fallback string
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.Mutex
	cache *cacheEntry
}

// New returns a Feed; unset fields get defaults (HTTPRequester,
// DecodeWeather, DefaultFallback).
func New(cfg Config) *Feed {
	f := &Feed{
		url:      cfg.URL,
		req:      cfg.Requester,
		decode:   cfg.Decoder,
		fallback: cfg.Fallback,
		now:      cfg.Now,
		log:      cfg.Logger.With().Str("component", "feed").Logger(),
	}
	if f.req == nil {
		f.req = HTTPRequester{}
	}
	if f.decode == nil {
		f.decode = DecodeWeather
	}
	if f.fallback == "" {
		f.fallback = DefaultFallback
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

type response struct {
	body []byte
	err  error
}

// Fetch requests a fresh value, waiting at most timeout. It never returns
// an error: failures come back as a Stale or Fallback Outcome. A result
// arriving after the timeout is discarded.
func (f *Feed) Fetch(ctx context.Context, timeout time.Duration) Outcome {
	if timeout <= 0 {
		return f.degrade(&FetchError{Kind: KindTimeout, Err: context.DeadlineExceeded})
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan response, 1)
	go func() {
		b, err := f.req.Request(ctx, f.url, timeout)
		ch <- response{body: b, err: err}
	}()

	var r response
	select {
	case r = <-ch:
	case <-ctx.Done():
		return f.degrade(classify(ctx.Err()))
	}
	if r.err != nil {
		return f.degrade(classify(r.err))
	}
	text, err := f.decode(r.body)
	if err != nil {
		return f.degrade(&FetchError{Kind: KindMalformed, Err: err})
	}
	// A deadline may have passed while decoding; the caller has moved on.
	if ctx.Err() != nil {
		return f.degrade(classify(ctx.Err()))
	}

	at := f.now()
	f.mu.Lock()
	f.cache = &cacheEntry{value: text, fetchedAt: at}
	f.mu.Unlock()
	fetchTotal.WithLabelValues(string(Fresh)).Inc()
	return Outcome{Value: text, Freshness: Fresh, FetchedAt: at}
}

// Cached returns the last good value as a Stale outcome.
func (f *Feed) Cached() (Outcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		return Outcome{}, false
	}
	return Outcome{Value: f.cache.value, Freshness: Stale, FetchedAt: f.cache.fetchedAt}, true
}


func (f *Feed) degrade(fe *FetchError) Outcome {
	out, ok := f.Cached()
	if !ok {
		out = Outcome{Value: f.fallback, Freshness: Fallback}
	}
	out.Err = fe
	fetchTotal.WithLabelValues(string(out.Freshness)).Inc()
	f.log.Warn().Str("kind", string(fe.Kind)).Str("freshness", string(out.Freshness)).Err(fe.Err).Msg("fetch failed")
	return out
}
