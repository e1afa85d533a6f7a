package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ads97/Veritas/internal/model"
)

type stubRunner struct{}

func (stubRunner) Verify(ctx context.Context, subject model.Subject) (*Result, error) {
	if subject.Name == "fails" {
		return nil, model.NewRunError(model.ErrRunFailed)
	}
	return &Result{Verdict: model.Verdict{Address: subject.Address}}, nil
}

func TestProcessSubjects_InputOrder(t *testing.T) {
	subjects := []model.Subject{
		{Name: "a", Address: "1 First St"},
		{Name: "fails", Address: "2 Second St"},
		{Name: "c", Address: "3 Third St"},
		{Name: "d", Address: "4 Fourth St"},
	}

	results, err := NewBatchProcessor(stubRunner{}, 3).ProcessSubjects(context.Background(), subjects)
	require.NoError(t, err)
	require.Len(t, results, len(subjects))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, subjects[i], r.Subject)
	}
	assert.True(t, errors.Is(results[1].GetError(), model.ErrRunFailed))
	assert.Equal(t, "3 Third St", results[2].Result.Verdict.Address)
}

func TestProcessSubjects_Empty(t *testing.T) {
	results, err := NewBatchProcessor(stubRunner{}, 0).ProcessSubjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReadSubjectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.yaml")
	content := `subjects:
  - name: Jane Doe
    address: 123 Main St
    listing_url: https://listings.example.com/123
    extra:
      listed_rent: "$1,200/mo"
  - name: Jane Doe
    address: 123 Main St
  - name: Robert Chen
    address: 9 Oak Ave
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	subjects, err := ReadSubjectsFile(path)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "https://listings.example.com/123", subjects[0].ListingURL)
	assert.Equal(t, "$1,200/mo", subjects[0].ExtraValue(model.ExtraListedRent))
	assert.Equal(t, "Robert Chen", subjects[1].Name)
}

func TestReadSubjectsFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subjects:\n  - name: No Address\n"), 0o644))

	_, err := ReadSubjectsFile(path)
	assert.ErrorIs(t, err, model.ErrInvalidSubject)

	_, err = ReadSubjectsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
