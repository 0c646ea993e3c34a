// Package classifier turns raw chat text into routing signals: maintenance
// commands, control prefixes, acknowledgements, trivial chatter and procedure
// topic hints. It never touches the knowledge collections.
package classifier

import (
	"regexp"
	"strings"

	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/models"
)

// ControlMode is the collection an explicit prefix asked for
type ControlMode string

const (
	ControlNone      ControlMode = ""
	ControlProcedure ControlMode = "procedure"
	ControlFaq       ControlMode = "faq"
)

// Classification holds the signals extracted from one message
type Classification struct {
	ControlMode       ControlMode
	Category          string // FAQ category from a "<category>: <query>" prefix
	CleanedText       string // mention and prefix stripped, trimmed
	Maintenance       models.MaintenanceKind
	IsAcknowledgement bool
	IsTrivial         bool
	PrefersProcedure  bool
	MatchedTopic      string
}

// HasPrefix reports whether a collection or category prefix was present
func (c Classification) HasPrefix() bool {
	return c.ControlMode != ControlNone || c.Category != ""
}

var (
	// <@U123ABC> or <@U123ABC|name>, optionally followed by ":" or ","
	mentionPattern = regexp.MustCompile(`^\s*<@[A-Z0-9]+(\|[^>]+)?>[:,]?\s*`)

	controlPrefixPattern  = regexp.MustCompile(`(?is)^(faq|faqs|sop|sops|procedure|procedures)\s*:\s*(.*)$`)
	categoryPrefixPattern = regexp.MustCompile(`(?is)^([a-z][a-z &-]{1,30}?)\s*:\s*(.*)$`)

	acknowledgementPattern = regexp.MustCompile(`(?i)^(ok|okay|k|kk|thanks|thank you|thank you so much|thanks a lot|thx|ty|cheers|cool|great|perfect|awesome|nice|got it|sounds good|will do|noted|appreciate it|much appreciated|perfect thanks|ok thanks|great thanks|👍|🙏)[\s!.]*$`)

	interrogativePattern = regexp.MustCompile(`(?i)^(what|whats|what's|how|when|where|why|who|whom|whose|which|can|could|do|does|did|is|are|am|was|were|should|would|will|may|might|has|have|must|shall)\b`)
)

type maintenanceRule struct {
	pattern *regexp.Regexp
	kind    models.MaintenanceKind
}

// Whole-message maintenance phrases, checked in order before anything else
var maintenanceRules = []maintenanceRule{
	{regexp.MustCompile(`(?i)^(refresh|sync|reload)\s+faqs?[\s!.]*$`), models.MaintenanceFaq},
	{regexp.MustCompile(`(?i)^(refresh|sync|reload)\s+(sops?|procedures?)[\s!.]*$`), models.MaintenanceProcedures},
	{regexp.MustCompile(`(?i)^(refresh|sync|reload)\s+(all|knowledge|everything)[\s!.]*$`), models.MaintenanceAll},
}

var controlModes = map[string]ControlMode{
	"faq":        ControlFaq,
	"faqs":       ControlFaq,
	"sop":        ControlProcedure,
	"sops":       ControlProcedure,
	"procedure":  ControlProcedure,
	"procedures": ControlProcedure,
}

type topicRule struct {
	topic   string
	pattern *regexp.Regexp
}

// Classifier applies the rule table configured for one deployment
type Classifier struct {
	categories map[string]struct{}
	topics     []topicRule
	minTokens  int
}

// NewClassifier builds a classifier from the configured categories and procedure topics
func NewClassifier(config common.ClassifierConfig) *Classifier {
	c := &Classifier{
		categories: make(map[string]struct{}, len(config.Categories)),
		minTokens:  config.MinTokens,
	}
	if c.minTokens <= 0 {
		c.minTokens = 3
	}

	for _, category := range config.Categories {
		if category = strings.ToLower(strings.TrimSpace(category)); category != "" {
			c.categories[category] = struct{}{}
		}
	}

	for _, topic := range config.ProcedureTopics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		words := strings.Fields(topic)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		c.topics = append(c.topics, topicRule{
			topic:   topic,
			pattern: regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`)),
		})
	}

	return c
}

// Classify extracts routing signals from raw message text
func (c *Classifier) Classify(raw string) Classification {
	text := strings.TrimSpace(StripMention(raw))
	result := Classification{CleanedText: text}

	for _, rule := range maintenanceRules {
		if rule.pattern.MatchString(text) {
			result.Maintenance = rule.kind
			return result
		}
	}

	if m := controlPrefixPattern.FindStringSubmatch(text); m != nil {
		result.ControlMode = controlModes[strings.ToLower(m[1])]
		result.CleanedText = strings.TrimSpace(m[2])
	} else if m := categoryPrefixPattern.FindStringSubmatch(text); m != nil {
		if _, ok := c.categories[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
			result.Category = strings.ToLower(strings.TrimSpace(m[1]))
			result.CleanedText = strings.TrimSpace(m[2])
		}
	}

	if result.ControlMode == ControlNone {
		if topic, ok := c.matchTopic(result.CleanedText); ok {
			result.PrefersProcedure = true
			result.MatchedTopic = topic
		}
	}

	if acknowledgementPattern.MatchString(text) {
		result.IsAcknowledgement = true
		return result
	}

	result.IsTrivial = c.isTrivial(result)
	return result
}

func (c *Classifier) matchTopic(text string) (string, bool) {
	for _, rule := range c.topics {
		if rule.pattern.MatchString(text) {
			return rule.topic, true
		}
	}
	return "", false
}

// A prefix with nothing after it is trivial too: there is nothing to look up.
func (c *Classifier) isTrivial(result Classification) bool {
	text := result.CleanedText
	if text == "" {
		return true
	}
	if result.HasPrefix() {
		return false
	}
	if strings.Contains(text, "?") || interrogativePattern.MatchString(text) {
		return false
	}
	return len(strings.Fields(text)) < c.minTokens
}

// StripMention removes a leading platform mention such as "<@U123ABC>"
func StripMention(text string) string {
	return mentionPattern.ReplaceAllString(text, "")
}
