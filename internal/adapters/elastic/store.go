package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// Store implements the EmailStore interface against an
// Elasticsearch-compatible HTTP API.
type Store struct {
	endpoint string
	index    string
	username string
	password string
	client   *http.Client
	logger   *zap.Logger
}

// NewStore creates a new Elasticsearch-backed email store
func NewStore(endpoint, index, username, password string, logger *zap.Logger) *Store {
	if index == "" {
		index = "emails"
	}
	return &Store{
		endpoint: endpoint,
		index:    index,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// EnsureIndex creates the email index if it does not already exist.
// An "already exists" answer from the server is not an error.
func (s *Store) EnsureIndex(ctx context.Context) error {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"subject":   map[string]interface{}{"type": "text"},
				"from":      map[string]interface{}{"type": "keyword"},
				"to":        map[string]interface{}{"type": "keyword"},
				"date":      map[string]interface{}{"type": "date"},
				"text_body": map[string]interface{}{"type": "text"},
				"folder":    map[string]interface{}{"type": "keyword"},
				"account":   map[string]interface{}{"type": "keyword"},
				"category":  map[string]interface{}{"type": "keyword"},
			},
		},
	}

	body, err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s", s.endpoint, s.index), mapping)
	if err != nil {
		var result struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &result); jsonErr == nil &&
			result.Error.Type == "resource_already_exists_exception" {
			s.logger.Info("Email index already exists", zap.String("index", s.index))
			return nil
		}
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}

	s.logger.Info("Email index ready", zap.String("index", s.index))
	return nil
}

// Store writes a classified message tagged with folder, account and category
func (s *Store) Store(ctx context.Context, msg *core.EmailMessage, folder, account string, category core.Category) error {
	doc := map[string]interface{}{
		"subject":   msg.Subject,
		"from":      msg.From,
		"to":        msg.To,
		"date":      msg.Date,
		"text_body": msg.TextBody,
		"folder":    folder,
		"account":   account,
		"category":  string(category),
	}

	_, err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/_doc", s.endpoint, s.index), doc)
	if err != nil {
		return fmt.Errorf("failed to store email: %w", err)
	}
	return nil
}

// CountForAccount reports the number of stored messages for an account
func (s *Store) CountForAccount(ctx context.Context, account string) (int, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"account": account,
			},
		},
	}

	body, err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/_count", s.endpoint, s.index), query)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}
	return result.Count, nil
}

// Search returns stored messages matching category and, when non-empty,
// account and folder
func (s *Store) Search(ctx context.Context, category, account, folder string) ([]core.EmailMessage, error) {
	must := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"category": category},
		},
	}
	if account != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"account": account},
		})
	}
	if folder != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"folder": folder},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
		"size": 100,
		"sort": []interface{}{
			map[string]interface{}{"date": map[string]interface{}{"order": "desc"}},
		},
	}

	body, err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s/_search", s.endpoint, s.index), query)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source core.EmailMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	emails := make([]core.EmailMessage, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		emails = append(emails, hit.Source)
	}
	return emails, nil
}

// do issues a JSON request against the store and returns the raw
// response body
func (s *Store) do(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// body is returned alongside the error so callers can inspect
		// the server's error type
		return body, fmt.Errorf("store returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
