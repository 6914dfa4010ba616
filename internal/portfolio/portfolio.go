// Package portfolio matches job skills against a small personal portfolio
// kept in an in-memory vector index.
package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit is the number of neighbours fetched per skill.
const DefaultLimit = 8

// Index answers skill queries with portfolio techstack labels.
type Index struct {
	entries []Entry
	vectors VectorIndex
	links   map[string][]string
	logger  *zap.Logger
}

// New builds an Index over entries. Call Load before querying.
func New(entries []Entry, vectors VectorIndex, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}

	links := make(map[string][]string)
	for _, e := range entries {
		label := strings.TrimSpace(e.Techstack)
		ref := strings.TrimSpace(e.Reference)
		if label == "" || ref == "" {
			continue
		}
		links[label] = append(links[label], ref)
	}

	return &Index{
		entries: entries,
		vectors: vectors,
		links:   links,
		logger:  logger,
	}
}

// Load adds every entry with a techstack to the vector index. It does nothing
// when the index already holds documents, so repeated calls are safe.
func (i *Index) Load(ctx context.Context) error {
	if n := i.vectors.Count(); n > 0 {
		i.logger.Debug("portfolio already loaded", zap.Int("documents", n))
		return nil
	}

	docs := make([]Document, 0, len(i.entries))
	for _, e := range i.entries {
		label := strings.TrimSpace(e.Techstack)
		if label == "" {
			continue
		}

		doc := Document{ID: uuid.NewString(), Content: label}
		if ref := strings.TrimSpace(e.Reference); ref != "" {
			doc.Metadata = map[string]string{metaLink: ref}
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		i.logger.Warn("portfolio has no techstack entries")
		return nil
	}

	if err := i.vectors.Add(ctx, docs); err != nil {
		return fmt.Errorf("load portfolio: %w", err)
	}

	i.logger.Info("portfolio loaded", zap.Int("documents", len(docs)))
	return nil
}

// Query returns techstack labels near any of the skills, in first-seen order
// without duplicates. Empty skills give an empty result without touching the index.
// A failing skill is logged and skipped; an error is returned only when every skill failed.
func (i *Index) Query(ctx context.Context, skills []string, limit int) ([]string, error) {
	if len(skills) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		out      []string
		queried  int
		failed   int
		firstErr error
	)
	seen := make(map[string]struct{})

	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		queried++

		docs, err := i.vectors.Query(ctx, skill, limit)
		if err != nil {
			failed++
			err = fmt.Errorf("query portfolio for %q: %w", skill, err)
			if firstErr == nil {
				firstErr = err
			}
			i.logger.Warn("skipping skill", zap.String("skill", skill), zap.Error(err))
			continue
		}

		for _, d := range docs {
			label := strings.TrimSpace(d.Content)
			if label == "" {
				continue
			}
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}

	if queried > 0 && failed == queried {
		return nil, firstErr
	}

	i.logger.Debug("portfolio matches",
		zap.Strings("skills", skills),
		zap.Strings("labels", out),
	)

	return out, nil
}

// References returns the links recorded for labels, deduplicated, in label order.
func (i *Index) References(labels []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, label := range labels {
		for _, ref := range i.links[strings.TrimSpace(label)] {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// Len reports the number of entries the index was built from.
func (i *Index) Len() int {
	return len(i.entries)
}
