package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CiteScope/internal/domain/reference"
	"github.com/turtacn/CiteScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteScope/pkg/errors"
)

// SectionHit is one candidate passage of a reference document, scored by
// lexical relevance to the queried element text.
type SectionHit struct {
	Section    string
	Text       string
	Score      float64
	Highlights []string
}

// SectionIndex indexes reference-document sections and serves the matcher's
// candidate-passage lookups.
type SectionIndex struct {
	client      *Client
	indexPrefix string
	topK        int
	logger      logging.Logger
}

func NewSectionIndex(client *Client, indexPrefix string, topK int, log logging.Logger) *SectionIndex {
	if indexPrefix == "" {
		indexPrefix = "citescope-"
	}
	if topK <= 0 {
		topK = 5
	}
	return &SectionIndex{client: client, indexPrefix: indexPrefix, topK: topK, logger: log}
}

func (s *SectionIndex) indexName() string {
	return s.indexPrefix + "reference-sections"
}

type sectionDoc struct {
	Reference string `json:"reference"`
	Section   string `json:"section"`
	Text      string `json:"text"`
}

// IndexSections upserts every section of a reference document.  Documents
// are keyed by reference and section name, so re-indexing is idempotent.
func (s *SectionIndex) IndexSections(ctx context.Context, doc *reference.Document) error {
	for _, section := range doc.Sections {
		body, err := json.Marshal(sectionDoc{
			Reference: doc.Number,
			Section:   section.Name,
			Text:      section.Text,
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode section document")
		}

		req := opensearchapi.IndexRequest{
			Index:      s.indexName(),
			DocumentID: doc.Number + ":" + section.Name,
			Body:       bytes.NewReader(body),
		}
		resp, err := req.Do(ctx, s.client.GetClient())
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to index reference section")
		}
		resp.Body.Close()
		if resp.IsError() {
			return errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("index request for %s/%s returned status %d", doc.Number, section.Name, resp.StatusCode))
		}
	}
	s.logger.Debug("indexed reference sections",
		logging.String("reference", doc.Number),
		logging.Int("sections", len(doc.Sections)))
	return nil
}

// Search returns the top candidate sections of one reference for the given
// element text, best lexical score first.
func (s *SectionIndex) Search(ctx context.Context, ref, query string, limit int) ([]SectionHit, error) {
	if limit <= 0 {
		limit = s.topK
	}

	dsl := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"reference": ref}},
				},
				"must": []interface{}{
					map[string]interface{}{"match": map[string]interface{}{"text": query}},
				},
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{"text": map[string]interface{}{}},
		},
	}
	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal section query")
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.indexName()},
		Body:  bytes.NewReader(body),
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "section search failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("section search returned status %d", resp.StatusCode))
	}

	return parseSectionHits(resp.Body)
}

func parseSectionHits(body io.Reader) ([]SectionHit, error) {
	var envelope struct {
		Hits struct {
			Hits []struct {
				Score     float64         `json:"_score"`
				Source    sectionDoc      `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to parse section search response")
	}

	hits := make([]SectionHit, 0, len(envelope.Hits.Hits))
	for _, h := range envelope.Hits.Hits {
		hits = append(hits, SectionHit{
			Section:    h.Source.Section,
			Text:       h.Source.Text,
			Score:      h.Score,
			Highlights: h.Highlight["text"],
		})
	}
	return hits, nil
}

//Personal.AI order the ending
