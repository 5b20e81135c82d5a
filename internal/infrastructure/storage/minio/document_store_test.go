package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

var docScope = common.Scope{TenantID: "t1", ProjectID: "p1", UserID: "u1"}

func TestGetDocumentRoundTrip(t *testing.T) {
	store := NewDocumentStore(newMemStore(), logging.NewNopLogger())
	ctx := context.Background()

	doc := &reference.Document{
		Number: "US111A",
		Title:  "Widget frame",
		Sections: []reference.Section{
			{Name: "claims", Text: "a frame mounted on a base"},
		},
	}
	require.NoError(t, store.PutDocument(ctx, docScope, doc))

	got, err := store.GetDocument(ctx, docScope, "US111A")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Len(t, got.Sections, 1)
}

func TestGetDocumentMissing(t *testing.T) {
	store := NewDocumentStore(newMemStore(), logging.NewNopLogger())

	_, err := store.GetDocument(context.Background(), docScope, "US999Z")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferenceUnavailable))
}

func TestGetDocumentScopedKeys(t *testing.T) {
	mem := newMemStore()
	store := NewDocumentStore(mem, logging.NewNopLogger())
	ctx := context.Background()

	doc := &reference.Document{Number: "US111A", FullText: "full text"}
	require.NoError(t, store.PutDocument(ctx, docScope, doc))

	foreign := common.Scope{TenantID: "t2", ProjectID: "p1"}
	_, err := store.GetDocument(ctx, foreign, "US111A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferenceUnavailable),
		"documents must not leak across tenants")
}

func TestGetDocumentCorrupt(t *testing.T) {
	mem := newMemStore()
	mem.objects[objectKey(docScope, "US111A")] = []byte("{not json")
	store := NewDocumentStore(mem, logging.NewNopLogger())

	_, err := store.GetDocument(context.Background(), docScope, "US111A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferenceUnavailable))
}

func TestGetDocumentTextless(t *testing.T) {
	mem := newMemStore()
	raw, _ := json.Marshal(&reference.Document{Number: "US111A"})
	mem.objects[objectKey(docScope, "US111A")] = raw
	store := NewDocumentStore(mem, logging.NewNopLogger())

	_, err := store.GetDocument(context.Background(), docScope, "US111A")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReferenceUnavailable))
}

//Personal.AI order the ending
