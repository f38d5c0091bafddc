package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/enrich/gemini"
	"github.com/twickenham/eventsd/internal/metrics"
	"github.com/twickenham/eventsd/internal/models"
)

const (
	DefaultMaxLength      = 16
	DefaultRequestTimeout = 15 * time.Second
)

// Provider generates a text completion for a single prompt. Implemented by
// the gemini client; faked in tests.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Result is the enrichment outcome for one event name. Enrich never fails:
// when the provider is unavailable the rule-based fallback fills every
// field and HadError records whether a real error occurred along the way.
type Result struct {
	ShortName    string
	TypeTag      models.TypeTag
	Emoji        string
	IconID       string
	HadError     bool
	ErrorMessage string
}

// Options configures a Processor. Zero values fall back to defaults; a nil
// Provider disables external calls entirely.
type Options struct {
	Provider       Provider
	Cache          *Cache
	Breaker        *Breaker
	Logger         *zap.Logger
	MaxLength      int
	FlagsEnabled   bool
	RequestTimeout time.Duration
}

// Processor shortens and classifies event names. Cache hits and rule
// fallbacks are free; everything else goes through the circuit breaker.
type Processor struct {
	provider     Provider
	cache        *Cache
	breaker      *Breaker
	logger       *zap.Logger
	maxLength    int
	flagsEnabled bool
	timeout      time.Duration
}

// NewProcessor builds a Processor from opts.
func NewProcessor(opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = NewCache("", opts.Logger)
	}
	if opts.Breaker == nil {
		opts.Breaker = NewBreaker(0, 0, 0)
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Processor{
		provider:     opts.Provider,
		cache:        opts.Cache,
		breaker:      opts.Breaker,
		logger:       opts.Logger,
		maxLength:    opts.MaxLength,
		flagsEnabled: opts.FlagsEnabled,
		timeout:      opts.RequestTimeout,
	}
}

// Enabled reports whether an external provider is configured.
func (p *Processor) Enabled() bool { return p.provider != nil }

// Enrich resolves the short name, type tag and icons for one event name.
func (p *Processor) Enrich(ctx context.Context, name string) Result {
	if entry, ok := p.cache.Get(name); ok {
		metrics.EnrichmentRequests.WithLabelValues("cache", "hit").Inc()
		return resultFromEntry(entry)
	}

	if p.provider == nil {
		metrics.EnrichmentRequests.WithLabelValues("fallback", "disabled").Inc()
		return p.fallback(name, false, "")
	}

	// The gauge mirrors the breaker state observed here, so a cooldown
	// expiry reads as closed without waiting for a successful call.
	if p.breaker.Open() {
		metrics.BreakerOpen.Set(1)
		retryAt, _ := p.breaker.RetryAt()
		p.logger.Debug("enrichment breaker open, using fallback",
			zap.String("event", name), zap.Time("retry_at", retryAt))
		metrics.EnrichmentRequests.WithLabelValues("fallback", "breaker_open").Inc()
		return p.fallback(name, false, "")
	}
	metrics.BreakerOpen.Set(0)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	response, err := p.provider.GenerateContent(callCtx, p.buildPrompt(name))
	if err != nil {
		if errors.Is(err, gemini.ErrQuota) {
			// Quota exhaustion is expected on free tiers; open the breaker
			// immediately and fall back without recording an error.
			p.breaker.Trip()
			p.logger.Warn("enrichment quota exhausted, breaker opened",
				zap.String("event", name))
			metrics.EnrichmentRequests.WithLabelValues("provider", "quota").Inc()
			metrics.BreakerOpen.Set(1)
			return p.fallback(name, false, "")
		}
		p.breaker.Failure()
		if p.breaker.Open() {
			metrics.BreakerOpen.Set(1)
		}
		p.logger.Warn("enrichment request failed",
			zap.String("event", name), zap.Error(err))
		metrics.EnrichmentRequests.WithLabelValues("provider", "error").Inc()
		return p.fallback(name, true, fmt.Sprintf("AI processing failed for '%s': %v", name, err))
	}

	result, err := p.parseResponse(response, name)
	if err != nil {
		// A response we cannot trust counts against the breaker just like
		// a transport failure.
		p.breaker.Failure()
		if p.breaker.Open() {
			metrics.BreakerOpen.Set(1)
		}
		p.logger.Warn("unusable enrichment response",
			zap.String("event", name), zap.Error(err))
		metrics.EnrichmentRequests.WithLabelValues("provider", "bad_response").Inc()
		return p.fallback(name, true, fmt.Sprintf("AI processing failed for '%s': %v", name, err))
	}

	p.breaker.Success()
	metrics.EnrichmentRequests.WithLabelValues("provider", "ok").Inc()

	p.cache.Put(name, CacheEntry{
		ShortName: result.ShortName,
		TypeTag:   result.TypeTag,
		Emoji:     result.Emoji,
		IconID:    result.IconID,
		CreatedAt: time.Now().UTC(),
	})
	return result
}

// Reprocess drops the cached entry for name and enriches it again.
func (p *Processor) Reprocess(ctx context.Context, name string) Result {
	p.cache.Remove(name)
	return p.Enrich(ctx, name)
}

// ClearCache removes every cached enrichment result.
func (p *Processor) ClearCache() int {
	n := p.cache.Len()
	p.cache.Clear()
	return n
}

// fallback produces a Result from the rule table alone. The original name
// is kept verbatim and the result is never cached, so the provider gets
// another chance on a later cycle.
func (p *Processor) fallback(name string, hadError bool, errMsg string) Result {
	tag := Classify(name)
	emoji, icon := IconsFor(tag)
	return Result{
		ShortName:    name,
		TypeTag:      tag,
		Emoji:        emoji,
		IconID:       icon,
		HadError:     hadError,
		ErrorMessage: errMsg,
	}
}

func (p *Processor) buildPrompt(name string) string {
	flagLine := "Keep text-only format without flag emojis."
	if p.flagsEnabled {
		flagLine = "When space allows and the event involves countries, prefix each country code with its Unicode flag emoji and one space."
	}
	return fmt.Sprintf(`Shorten this event name for a small display and classify it.

Event: %s

Rules:
- Maximum %d characters (count flag emojis as 2 characters each)
- Keep team or artist names recognizable
- %s

Respond in exactly this format:
SHORT: [shortened name]
TYPE: [final/rugby/football/cricket/concert/generic]`, name, p.maxLength, flagLine)
}

// parseResponse extracts the SHORT and TYPE lines. A missing SHORT line or
// a short name over the width budget makes the whole response unusable; an
// unknown TYPE alone falls back to the rule table since classification has
// a deterministic local answer.
func (p *Processor) parseResponse(response, name string) (Result, error) {
	shortName := ""
	tag := models.TypeTag("")

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SHORT:"):
			shortName = strings.TrimSpace(strings.TrimPrefix(line, "SHORT:"))
		case strings.HasPrefix(line, "TYPE:"):
			candidate := models.TypeTag(strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "TYPE:"))))
			if validTypeTag(candidate) {
				tag = candidate
			}
		}
	}

	if shortName == "" {
		return Result{}, fmt.Errorf("response missing SHORT line")
	}
	if width := VisualWidth(shortName); width > p.maxLength {
		return Result{}, fmt.Errorf("short name %q is %d wide, budget is %d", shortName, width, p.maxLength)
	}

	if tag == "" {
		tag = Classify(name)
	}
	emoji, icon := IconsFor(tag)
	return Result{
		ShortName: shortName,
		TypeTag:   tag,
		Emoji:     emoji,
		IconID:    icon,
	}, nil
}

func validTypeTag(tag models.TypeTag) bool {
	switch tag {
	case models.TypeFinal, models.TypeRugby, models.TypeFootball,
		models.TypeCricket, models.TypeConcert, models.TypeGeneric:
		return true
	}
	return false
}

func resultFromEntry(entry CacheEntry) Result {
	return Result{
		ShortName: entry.ShortName,
		TypeTag:   entry.TypeTag,
		Emoji:     entry.Emoji,
		IconID:    entry.IconID,
	}
}
