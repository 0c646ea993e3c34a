package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/interfaces"
	"golang.org/x/time/rate"
)

// FallbackAdapter answers free text with a generative provider. It implements
// interfaces.Answerer: every failure becomes the configured apology.
type FallbackAdapter struct {
	provider          Provider
	systemInstruction string
	apology           string
	timeout           time.Duration
	limiter           *rate.Limiter
	cache             *lru.Cache[string, string]
	logger            arbor.ILogger
}

// NewFallbackAdapter creates the adapter. provider may be nil, in which case
// every answer is the apology.
func NewFallbackAdapter(config *common.Config, provider Provider, logger arbor.ILogger) *FallbackAdapter {
	a := &FallbackAdapter{
		provider:          provider,
		systemInstruction: SystemInstruction(config.Assistant),
		apology:           config.Assistant.Apology,
		timeout:           common.ParseDurationOr(config.LLM.Timeout, 60*time.Second),
		limiter:           rate.NewLimiter(rate.Inf, 1),
		logger:            logger,
	}

	if interval := common.ParseDurationOr(config.LLM.RateLimit, 0); interval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	if config.LLM.CacheSize > 0 {
		cache, err := lru.New[string, string](config.LLM.CacheSize)
		if err != nil {
			logger.Warn().Err(err).Msg("Answer cache disabled")
		} else {
			a.cache = cache
		}
	}

	return a
}

// SystemInstruction builds the fixed persona and grounding instruction
func SystemInstruction(assistant common.AssistantConfig) string {
	name := assistant.Name
	if name == "" {
		name = "the assistant"
	}
	organisation := assistant.Organisation
	if organisation == "" {
		organisation = "the brokerage"
	}
	domain := assistant.Domain
	if domain == "" {
		domain = "real estate brokerage operations"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, the internal help assistant for agents and staff at %s.\n", name, organisation)
	fmt.Fprintf(&sb, "Answer questions about %s clearly and briefly, in a friendly professional tone.\n", domain)
	sb.WriteString("The internal FAQ and procedure library had no answer for this question, so answer from general knowledge ")
	sb.WriteString("and say when the user should confirm details with their broker, team lead or the relevant office.\n")
	sb.WriteString("Never invent links, document names, form numbers, phone numbers or internal policies. ")
	sb.WriteString("If you do not know, say so.\n")
	sb.WriteString("Format replies for chat: short paragraphs or bullet lists, no headings.")
	return sb.String()
}

// Answer returns generated text for the query, or the apology on any failure
func (a *FallbackAdapter) Answer(ctx context.Context, text string) string {
	key := cacheKey(text)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.logger.Debug().Msg("Generative answer served from cache")
			return cached
		}
	}

	answer, err := a.generate(ctx, text)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Generative fallback failed, replying with apology")
		return a.apology
	}

	if a.cache != nil {
		a.cache.Add(key, answer)
	}
	return answer
}

func (a *FallbackAdapter) generate(ctx context.Context, text string) (string, error) {
	if a.provider == nil {
		return "", ErrNoProvider
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty query")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := a.provider.GenerateContent(ctx, &ContentRequest{
		Messages:          []interfaces.Message{{Role: "user", Content: text}},
		SystemInstruction: a.systemInstruction,
	})
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("empty response")
	}
	return strings.TrimSpace(resp.Text), nil
}

func cacheKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
