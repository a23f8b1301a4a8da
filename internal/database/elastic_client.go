package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olivere/elastic/v7"
)

// ScrollBatchSize is the number of hits fetched per scroll page.
const ScrollBatchSize = 1000

// SortField orders search hits.
type SortField struct {
	Field string
	Desc  bool
}

// ElasticSearchClient wraps olivere/elastic client.
type ElasticSearchClient struct {
	client *elastic.Client
}

// NewElasticSearchClient creates a new client for Elasticsearch 7.x. Sniffing
// and health checks are off so a single node behind docker or a proxy works.
func NewElasticSearchClient(url, username, password string) (*ElasticSearchClient, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}
	if username != "" {
		opts = append(opts, elastic.SetBasicAuth(username, password))
	}

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticSearchClient{client: client}, nil
}

func buildQuery(queryString string) elastic.Query {
	if queryString == "" {
		return elastic.NewMatchAllQuery()
	}
	return elastic.NewQueryStringQuery(queryString)
}

func sorters(sorts []SortField) []elastic.Sorter {
	out := make([]elastic.Sorter, 0, len(sorts))
	for _, s := range sorts {
		fs := elastic.NewFieldSort(s.Field)
		if s.Desc {
			fs = fs.Desc()
		}
		out = append(out, fs)
	}
	return out
}

// Search returns the _source documents of the first size hits.
func (es *ElasticSearchClient) Search(ctx context.Context, index, queryString string, sorts []SortField, size int) ([]map[string]interface{}, error) {
	searchResult, err := es.client.Search().
		Index(index).
		Query(buildQuery(queryString)).
		SortBy(sorters(sorts)...).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s failed: %w", index, err)
	}

	return decodeHits(searchResult.Hits)
}

// ScrollAll returns the _source documents of every hit, fetched in pages of
// ScrollBatchSize.
func (es *ElasticSearchClient) ScrollAll(ctx context.Context, index, queryString string, sorts []SortField) ([]map[string]interface{}, error) {
	scroll := es.client.Scroll(index).
		Query(buildQuery(queryString)).
		Size(ScrollBatchSize).
		KeepAlive("2m")
	if len(sorts) > 0 {
		scroll = scroll.SortBy(sorters(sorts)...)
	} else {
		scroll = scroll.Sort("_doc", true)
	}
	defer scroll.Clear(context.Background())

	var docs []map[string]interface{}
	for {
		results, err := scroll.Do(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scroll %s failed: %w", index, err)
		}

		batch, err := decodeHits(results.Hits)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch...)
	}

	return docs, nil
}

// decodeHits keeps integers exact by decoding numbers as json.Number.
func decodeHits(hits *elastic.SearchHits) ([]map[string]interface{}, error) {
	if hits == nil {
		return nil, nil
	}
	docs := make([]map[string]interface{}, 0, len(hits.Hits))
	for _, hit := range hits.Hits {
		var doc map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(hit.Source))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode hit %s: %w", hit.Id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// BulkIndex indexes docs keyed by document id.
func (es *ElasticSearchClient) BulkIndex(ctx context.Context, index string, docs map[string]interface{}) error {
	bulkRequest := es.client.Bulk()

	for id, doc := range docs {
		req := elastic.NewBulkIndexRequest().
			Index(index).
			Id(id).
			Doc(doc)
		bulkRequest = bulkRequest.Add(req)
	}

	if bulkRequest.NumberOfActions() == 0 {
		return nil
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}

	if bulkResponse.Errors {
		for _, item := range bulkResponse.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk item %s failed: %s", op.Id, op.Error.Reason)
				}
			}
		}
	}

	return nil
}

// DeleteIndex removes index, ignoring a missing one.
func (es *ElasticSearchClient) DeleteIndex(ctx context.Context, index string) error {
	_, err := es.client.DeleteIndex(index).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("delete index %s failed: %w", index, err)
	}
	return nil
}
