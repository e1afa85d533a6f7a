package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Ads97/Veritas/internal/model"
	"github.com/Ads97/Veritas/internal/worker"
)

// Runner verifies one subject
type Runner interface {
	Verify(ctx context.Context, subject model.Subject) (*Result, error)
}

// BatchJob verifies one subject of a batch
type BatchJob struct {
	Index   int
	Subject model.Subject
	Runner  Runner
}

// Execute executes the verification
func (j *BatchJob) Execute(ctx context.Context) worker.Result {
	result, err := j.Runner.Verify(ctx, j.Subject)
	return &BatchResult{
		Index:   j.Index,
		Subject: j.Subject,
		Result:  result,
		Error:   err,
	}
}

// BatchResult is the outcome for one subject
type BatchResult struct {
	Index   int
	Subject model.Subject
	Result  *Result
	Error   error
}

// GetError returns the verification error
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many subjects concurrently
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{runner: runner, concurrency: concurrency}
}

// ProcessSubjects verifies every subject and returns the results in input order.
// Subjects not started before ctx ended are missing from the results.
func (b *BatchProcessor) ProcessSubjects(ctx context.Context, subjects []model.Subject) ([]*BatchResult, error) {
	if len(subjects) == 0 {
		return []*BatchResult{}, nil
	}

	jobs := make([]worker.Job, len(subjects))
	for i, s := range subjects {
		jobs[i] = &BatchJob{Index: i, Subject: s, Runner: b.runner}
	}

	results, err := worker.Run(ctx, b.concurrency, jobs)

	out := make([]*BatchResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*BatchResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out, err
}

type subjectsFile struct {
	Subjects []model.Subject `yaml:"subjects"`
}

// ReadSubjectsFile reads a YAML file of the form
//
//	subjects:
//	  - name: Jane Doe
//	    address: 123 Main St
//	    extra:
//	      listed_rent: "1200"
//
// Repeated name and address pairs are verified once.
func ReadSubjectsFile(path string) ([]model.Subject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subjects: %w", err)
	}

	var file subjectsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}

	seen := make(map[string]bool)
	var subjects []model.Subject
	for i, s := range file.Subjects {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("subject %d: %w", i+1, err)
		}
		key := s.SearchQuery()
		if seen[key] {
			continue
		}
		seen[key] = true
		subjects = append(subjects, s)
	}
	return subjects, nil
}
