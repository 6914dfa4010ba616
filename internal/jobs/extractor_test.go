package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeModel) Model() string { return "fake" }

func TestExtractSingleObject(t *testing.T) {
	model := &fakeModel{response: `{"role": "Backend Engineer", "experience": "3+ years", "skills": ["Go", "Docker"], "description": "Build APIs."}`}

	postings, err := NewExtractor(model, nil, 0).Extract(context.Background(), "careers page text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	got := postings[0]
	if got.Role != "Backend Engineer" || got.Experience != "3+ years" || got.Description != "Build APIs." {
		t.Fatalf("unexpected posting: %+v", got)
	}
	if strings.Join(got.Skills, "|") != "Go|Docker" {
		t.Fatalf("unexpected skills: %v", got.Skills)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("expected a single model call, got %d", len(model.prompts))
	}
	if !strings.Contains(model.prompts[0], "careers page text") || strings.Contains(model.prompts[0], "{{PAGE_DATA}}") {
		t.Fatalf("page text not substituted into prompt")
	}
}

func TestExtractMalformedOutput(t *testing.T) {
	model := &fakeModel{response: "Sorry, I cannot help with that."}

	_, err := NewExtractor(model, nil, 0).Extract(context.Background(), "text")
	if !errors.Is(err, ErrUnparseableResponse) {
		t.Fatalf("expected ErrUnparseableResponse, got %v", err)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("parse failures must not retry, got %d calls", len(model.prompts))
	}
}

func TestExtractModelError(t *testing.T) {
	modelErr := errors.New("quota")
	model := &fakeModel{err: modelErr}

	_, err := NewExtractor(model, nil, 0).Extract(context.Background(), "text")
	if !errors.Is(err, modelErr) {
		t.Fatalf("expected model error, got %v", err)
	}
	if errors.Is(err, ErrUnparseableResponse) {
		t.Fatal("model errors are not parse errors")
	}
}

func TestExtractLogsPreviews(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	model := &fakeModel{response: `[]`}

	postings, err := NewExtractor(model, zap.New(core), 10).Extract(context.Background(), strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 0 {
		t.Fatalf("expected no postings, got %d", len(postings))
	}

	entries := logs.FilterMessage("extract jobs request").All()
	if len(entries) != 1 {
		t.Fatalf("expected request log, got %d", len(entries))
	}
	preview, _ := entries[0].ContextMap()["prompt_preview"].(string)
	if len([]rune(preview)) > 10+len([]rune("...")) {
		t.Fatalf("preview not truncated: %q", preview)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []Posting
		wantErr bool
	}{
		{
			name: "array",
			raw:  `[{"role":"A","skills":["Go"]},{"role":"B","skills":[]}]`,
			want: []Posting{{Role: "A", Skills: []string{"Go"}}, {Role: "B", Skills: []string{}}},
		},
		{
			name: "markdown fence",
			raw:  "```json\n{\"role\":\"SRE\",\"skills\":[\"Kubernetes\"]}\n```",
			want: []Posting{{Role: "SRE", Skills: []string{"Kubernetes"}}},
		},
		{
			name: "jobs wrapper",
			raw:  `{"jobs":[{"role":"A"},{"role":"B"}]}`,
			want: []Posting{{Role: "A", Skills: []string{}}, {Role: "B", Skills: []string{}}},
		},
		{
			name: "weak types",
			raw:  `{"role":" Data Engineer ","experience":5,"skills":"Python, SQL ,","description":null}`,
			want: []Posting{{Role: "Data Engineer", Experience: "5", Skills: []string{"Python", "SQL"}}},
		},
		{
			name: "list experience",
			raw:  `{"role":"ML","experience":["2 years","PhD"],"skills":["PyTorch",""]}`,
			want: []Posting{{Role: "ML", Experience: "2 years, PhD", Skills: []string{"PyTorch"}}},
		},
		{
			name: "preamble",
			raw:  "Here are the jobs:\n[{\"role\":\"QA\"}]\nThanks!",
			want: []Posting{{Role: "QA", Skills: []string{}}},
		},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "truncated", raw: `[{"role":"A",`, wantErr: true},
		{name: "scalar", raw: `42`, wantErr: true},
		{name: "array of strings", raw: `["Go","Rust"]`, wantErr: true},
		{name: "nested skills", raw: `{"role":"A","skills":[{"name":"Go"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseableResponse) {
					t.Fatalf("expected ErrUnparseableResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d postings, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if !equalPosting(got[i], tt.want[i]) {
					t.Fatalf("posting %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func equalPosting(a, b Posting) bool {
	if a.Role != b.Role || a.Experience != b.Experience || a.Description != b.Description {
		return false
	}
	if len(a.Skills) != len(b.Skills) {
		return false
	}
	for i := range a.Skills {
		if a.Skills[i] != b.Skills[i] {
			return false
		}
	}
	return true
}
