package minio

import (
	"context"
	"encoding/json"
	"io"

	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
	"github.com/turtacn/CiteScope/pkg/types/common"
)

// DocumentStore implements reference.Source on top of object storage.
// Key layout: {tenant}/{project}/references/{number}.json
type DocumentStore struct {
	store  ObjectStore
	logger logging.Logger
}

func NewDocumentStore(store ObjectStore, log logging.Logger) *DocumentStore {
	return &DocumentStore{store: store, logger: log}
}

func objectKey(scope common.Scope, number string) string {
	return string(scope.TenantID) + "/" + string(scope.ProjectID) + "/references/" + number + ".json"
}

// GetDocument loads and decodes a reference document.  Missing objects,
// decode failures, and text-free documents all surface as the pipeline's
// single reference failure mode.
func (s *DocumentStore) GetDocument(ctx context.Context, scope common.Scope, number string) (*reference.Document, error) {
	key := objectKey(scope, number)

	obj, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, reference.Unavailable(number, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, reference.Unavailable(number, err)
	}

	var doc reference.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("corrupt reference document in object storage",
			logging.String("key", key), logging.Err(err))
		return nil, reference.Unavailable(number, err)
	}
	if doc.Number == "" {
		doc.Number = number
	}
	if !doc.Searchable() {
		return nil, reference.Unavailable(number, errors.New(
			errors.ErrCodeReferenceUnavailable, "document has no searchable text"))
	}
	return &doc, nil
}

// PutDocument stores a reference document.  The ingestion path and tests
// use it; the pipeline itself only reads.
func (s *DocumentStore) PutDocument(ctx context.Context, scope common.Scope, doc *reference.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode reference document")
	}
	if err := s.store.Put(ctx, objectKey(scope, doc.Number), raw, "application/json"); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to store reference document")
	}
	return nil
}

//Personal.AI order the ending
