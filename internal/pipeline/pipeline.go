// Package pipeline runs the whole flow for one job page: fetch, clean,
// extract postings, then match and compose an email per posting.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cold-emailer/internal/jobs"
	"github.com/spigell/cold-emailer/internal/logger"
	"github.com/spigell/cold-emailer/internal/output"
	"github.com/spigell/cold-emailer/internal/utils"
)

const (
	// MinPageLength is the shortest page text worth sending to the model.
	MinPageLength = 200
	// SkillCues is how many posting skills are used to query the portfolio.
	SkillCues = 8
	// MatchLimit is the number of portfolio neighbours fetched per skill.
	MatchLimit = 8
	// PreviewLength bounds the text kept in Result.Preview.
	PreviewLength = 2000

	DefaultRecipient = "採用担当者様"
	DefaultRole      = "AI/ML Engineer"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

type Extractor interface {
	Extract(ctx context.Context, text string) ([]jobs.Posting, error)
}

type Portfolio interface {
	Load(ctx context.Context) error
	Query(ctx context.Context, skills []string, limit int) ([]string, error)
	References(labels []string) []string
}

type Composer interface {
	Compose(ctx context.Context, posting jobs.Posting, company, recipient, fallbackRole string, matches []string) (string, error)
}

// Cleaner normalises scraped text before extraction.
type Cleaner func(string) string

// Request describes one run.
type Request struct {
	URL       string
	Company   string
	Recipient string
	Role      string
	// Raw skips the cleaner.
	Raw bool
	// AutoRole names results and files after each posting's own role instead of Role.
	AutoRole bool
}

// Step reports the size of the data after a stage.
type Step struct {
	Name  string
	Count int
}

// JobResult is the outcome for a single posting.
type JobResult struct {
	Index      int
	Posting    jobs.Posting
	Role       string
	Matches    []string
	References []string
	Email      string
	FileName   string
	Err        error
}

// Result is the outcome of a run. Warning is set when the run stopped early
// without an error (ErrPageTooShort, ErrNoJobs); Preview then holds the text seen.
type Result struct {
	Company   string
	Recipient string
	Warning   error
	Preview   string
	Steps     []Step
	Jobs      []JobResult
}

type Pipeline struct {
	fetcher   Fetcher
	clean     Cleaner
	portfolio Portfolio
	extractor Extractor
	composer  Composer
	logger    *zap.Logger
	maxLogLen int
}

func New(fetcher Fetcher, clean Cleaner, portfolio Portfolio, extractor Extractor, composer Composer, logger *zap.Logger, maxLogLength int) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clean == nil {
		clean = func(s string) string { return s }
	}
	return &Pipeline{
		fetcher:   fetcher,
		clean:     clean,
		portfolio: portfolio,
		extractor: extractor,
		composer:  composer,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Run processes req. Errors are returned only when the whole run cannot
// continue; per-posting failures are recorded in JobResult.Err.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{
		Company:   strings.TrimSpace(req.Company),
		Recipient: strings.TrimSpace(req.Recipient),
	}
	if res.Company == "" {
		res.Company = CompanyFromURL(req.URL)
	}
	if res.Recipient == "" {
		res.Recipient = DefaultRecipient
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = DefaultRole
	}

	p.logger.Info("fetching text", zap.String("url", req.URL))
	raw := p.fetcher.Fetch(ctx, req.URL)
	res.Steps = append(res.Steps, Step{Name: "fetched_chars", Count: utf8.RuneCountInString(raw)})

	if utf8.RuneCountInString(raw) < MinPageLength {
		p.logger.Warn("fetched text is too short",
			zap.Int("length", utf8.RuneCountInString(raw)),
			zap.Int("min_length", MinPageLength),
		)
		res.Warning = ErrPageTooShort
		res.Preview = utils.Preview(raw, PreviewLength)
		return res, nil
	}

	data := raw
	if !req.Raw {
		data = p.clean(raw)
	}
	res.Steps = append(res.Steps, Step{Name: "processed_chars", Count: utf8.RuneCountInString(data)})
	p.logger.Info("processing text",
		zap.Bool("raw", req.Raw),
		zap.Int("length", utf8.RuneCountInString(data)),
	)
	p.logger.Debug("processed text preview", zap.String("preview", utils.TruncateForLog(data, p.maxLogLen)))

	p.logger.Info("loading portfolio")
	if err := p.portfolio.Load(ctx); err != nil {
		return res, fmt.Errorf("load portfolio: %w", err)
	}

	p.logger.Info("extracting jobs")
	postings, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return res, err
	}
	res.Steps = append(res.Steps, Step{Name: "jobs", Count: len(postings)})

	if len(postings) == 0 {
		p.logger.Warn("no jobs found on the page")
		res.Warning = ErrNoJobs
		res.Preview = utils.Preview(data, PreviewLength)
		return res, nil
	}

	p.logger.Info("generating emails", zap.Int("jobs", len(postings)))
	emails := 0
	for i, posting := range postings {
		job := p.processJob(ctx, i, posting, res.Company, res.Recipient, role, req.AutoRole)
		if job.Err == nil {
			emails++
		}
		res.Jobs = append(res.Jobs, job)
	}
	res.Steps = append(res.Steps, Step{Name: "emails", Count: emails})

	return res, nil
}

func (p *Pipeline) processJob(ctx context.Context, index int, posting jobs.Posting, company, recipient, role string, autoRole bool) JobResult {
	if autoRole && posting.Role != "" {
		role = posting.Role
	}
	log := logger.WithJob(p.logger, index, role)

	job := JobResult{
		Index:    index,
		Posting:  posting,
		Role:     role,
		FileName: output.FileName(company, role),
	}

	cues := posting.Skills
	if len(cues) > SkillCues {
		cues = cues[:SkillCues]
	}

	matches, err := p.portfolio.Query(ctx, cues, MatchLimit)
	if err != nil {
		log.Error("portfolio query failed", zap.Error(err))
		matches = nil
	}
	job.Matches = matches
	job.References = p.portfolio.References(matches)
	log.Debug("portfolio matches",
		zap.Strings("skill_cues", cues),
		zap.Strings("matches", matches),
	)

	text, err := p.composer.Compose(ctx, posting, company, recipient, role, matches)
	switch {
	case err != nil:
		job.Err = err
	case strings.TrimSpace(text) == "":
		job.Err = ErrEmptyEmail
	default:
		job.Email = text
	}

	if job.Err != nil {
		log.Error("email generation failed", zap.Error(job.Err))
		return job
	}

	log.Info("email generated", zap.Int("length", utf8.RuneCountInString(job.Email)))
	return job
}
