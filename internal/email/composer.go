// Package email writes personalised cold emails for extracted job postings.
package email

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/cold-emailer/internal/ai"
	"github.com/spigell/cold-emailer/internal/jobs"
	"github.com/spigell/cold-emailer/internal/utils"
)

const (
	notSpecified = "Not specified"
	notAvailable = "Not available"
	noMatches    = "No specific skill matches found in portfolio."

	// DescriptionLimit is the number of description runes passed to the model.
	DescriptionLimit = 500
	// availableLabels is how many labels are listed when no skill matched.
	availableLabels = 5

	defaultMinWords     = 150
	defaultMaxWords     = 220
	defaultMaxLogLength = 200
	defaultRecipient    = "Hiring Manager"
)

// DefaultLanguages are the email versions written when none are configured.
var DefaultLanguages = []string{"Japanese", "English"}

//go:embed prompt.md
var promptTemplate string

// Asset is a portfolio project shown in the email.
type Asset struct {
	Title string `mapstructure:"title"`
	URL   string `mapstructure:"url"`
}

// Profile describes the sender.
type Profile struct {
	Name     string   `mapstructure:"name"`
	Headline string   `mapstructure:"headline"`
	Links    []string `mapstructure:"links"`
	Assets   []Asset  `mapstructure:"assets"`
}

// Options tune the generated text.
type Options struct {
	Languages    []string
	MinWords     int
	MaxWords     int
	MaxLogLength int
}

type Composer struct {
	model   ai.LanguageModel
	profile Profile
	opts    Options
	logger  *zap.Logger
}

func NewComposer(model ai.LanguageModel, profile Profile, opts Options, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultLanguages
	}
	if opts.MinWords <= 0 {
		opts.MinWords = defaultMinWords
	}
	if opts.MaxWords < opts.MinWords {
		opts.MaxWords = defaultMaxWords
		if opts.MaxWords < opts.MinWords {
			opts.MaxWords = opts.MinWords
		}
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Composer{model: model, profile: profile, opts: opts, logger: logger}
}

// Compose renders the prompt for posting and returns the model text as is.
// fallbackRole is used when the posting has no role.
func (c *Composer) Compose(ctx context.Context, posting jobs.Posting, company, recipient, fallbackRole string, matches []string) (string, error) {
	prompt := c.BuildPrompt(posting, company, recipient, fallbackRole, matches)

	c.logger.Debug("compose email request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.opts.MaxLogLength)),
	)

	text, err := c.model.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("compose email: %w", err)
	}

	c.logger.Debug("compose email response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, c.opts.MaxLogLength)),
	)

	return text, nil
}

// BuildPrompt fills the email template without calling the model.
func (c *Composer) BuildPrompt(posting jobs.Posting, company, recipient, fallbackRole string, matches []string) string {
	role := orDefault(posting.Role, fallbackRole)

	skills := notSpecified
	if len(posting.Skills) > 0 {
		skills = strings.Join(posting.Skills, ", ")
	}

	description := strings.TrimSpace(posting.Description)
	if description == "" {
		description = notAvailable
	}

	replacer := strings.NewReplacer(
		"{{SENDER_NAME}}", orDefault(c.profile.Name, "the candidate"),
		"{{SENDER_HEADLINE}}", orDefault(c.profile.Headline, notSpecified),
		"{{COMPANY}}", company,
		"{{RECIPIENT}}", orDefault(recipient, defaultRecipient),
		"{{ROLE}}", role,
		"{{SKILLS}}", skills,
		"{{EXPERIENCE}}", orDefault(posting.Experience, notSpecified),
		"{{DESCRIPTION}}", utils.Truncate(description, DescriptionLimit),
		"{{SKILL_MATCHES}}", MatchSummary(posting.Skills, matches),
		"{{PORTFOLIO_ASSETS}}", c.assets(),
		"{{SIGNATURE}}", c.signature(),
		"{{LANGUAGES}}", strings.Join(c.opts.Languages, ", "),
		"{{MIN_WORDS}}", strconv.Itoa(c.opts.MinWords),
		"{{MAX_WORDS}}", strconv.Itoa(c.opts.MaxWords),
	)

	return replacer.Replace(promptTemplate)
}

// MatchSummary pairs each skill with the first label that contains it or is
// contained in it, ignoring case.
func MatchSummary(skills, labels []string) string {
	if len(skills) == 0 || len(labels) == 0 {
		return noMatches
	}

	var lines []string
	for _, skill := range skills {
		needle := strings.ToLower(strings.TrimSpace(skill))
		if needle == "" {
			continue
		}
		for _, label := range labels {
			hay := strings.ToLower(label)
			if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
				lines = append(lines, fmt.Sprintf("- %s → Portfolio experience: %s", skill, label))
				break
			}
		}
	}

	if len(lines) > 0 {
		return "SKILL MATCHING:\n" + strings.Join(lines, "\n")
	}

	shown := labels
	if len(shown) > availableLabels {
		shown = shown[:availableLabels]
	}
	return "Portfolio techstack available: " + strings.Join(shown, ", ")
}

func (c *Composer) assets() string {
	if len(c.profile.Assets) == 0 {
		return "- " + notSpecified
	}
	lines := make([]string, 0, len(c.profile.Assets))
	for _, a := range c.profile.Assets {
		switch {
		case a.URL == "":
			lines = append(lines, "- "+a.Title)
		case a.Title == "":
			lines = append(lines, "- "+a.URL)
		default:
			lines = append(lines, fmt.Sprintf("- %s: %s", a.Title, a.URL))
		}
	}
	return strings.Join(lines, "\n")
}

func (c *Composer) signature() string {
	lines := []string{orDefault(c.profile.Name, "")}
	lines = append(lines, c.profile.Links...)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
