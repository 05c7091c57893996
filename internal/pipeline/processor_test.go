package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"f1-rag-go/internal/index"
	"f1-rag-go/internal/model"
	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/embedding"
	"f1-rag-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpusYAML = `
documents:
  - title: Red Bull Racing
    type: team
    source: f1_teams
    content: Red Bull Racing is based in Milton Keynes. The team won the 2023 constructors title.
  - title: Spa-Francorchamps
    type: circuit
    source: f1_circuits
    content: Spa hosts the Belgian Grand Prix.
`

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, object string) ([]byte, error) {
	data, ok := m[object]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func newProcessor(objects ObjectFetcher) (*Processor, *index.MemoryIndex) {
	idx := index.NewMemoryIndex(embedding.DefaultDimension)
	ingest := service.NewIngestService(embedding.NewMockEmbedder(embedding.DefaultDimension), idx, nil, nil, service.IngestOptions{})
	return NewProcessor(ingest, objects), idx
}

func TestProcessor_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(corpusYAML), 0o644))
	p, idx := newProcessor(nil)

	result, err := p.Run(context.Background(), tasks.IngestionTask{TaskID: "t1", Source: tasks.SourceFile, Location: path})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DocumentsProcessed)
	assert.Equal(t, 2, idx.Stats(context.Background()).TotalDocuments)
}

func TestProcessor_MinIOSource(t *testing.T) {
	p, idx := newProcessor(mapFetcher{"corpus/f1.yaml": []byte(corpusYAML)})

	require.NoError(t, p.Process(context.Background(), tasks.IngestionTask{TaskID: "t2", Source: tasks.SourceMinIO, Location: "corpus/f1.yaml"}))
	assert.Equal(t, 2, idx.Stats(context.Background()).TotalDocuments)

	err := p.Process(context.Background(), tasks.IngestionTask{Source: tasks.SourceMinIO, Location: "missing"})
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)
}

func TestProcessor_Errors(t *testing.T) {
	p, _ := newProcessor(nil)

	err := p.Process(context.Background(), tasks.IngestionTask{Source: tasks.SourceMinIO, Location: "x"})
	assert.ErrorIs(t, err, model.ErrBackendUnavailable)

	err = p.Process(context.Background(), tasks.IngestionTask{Source: "ftp", Location: "x"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	err = p.Process(context.Background(), tasks.IngestionTask{Source: tasks.SourceFile, Location: filepath.Join(t.TempDir(), "none.yaml")})
	assert.Error(t, err)
}
