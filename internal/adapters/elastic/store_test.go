package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

func testMessage() *core.EmailMessage {
	return &core.EmailMessage{
		Subject:  "hello",
		From:     "sender@x.com",
		To:       []string{"rcpt@x.com"},
		Date:     time.Now(),
		TextBody: "body",
	}
}

func TestStoreRejectedWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"}}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	err := s.Store(context.Background(), testMessage(), "INBOX", "a@x.com", core.CategoryInterested)
	require.Error(t, err, "a rejected write must surface as an error, not a silent drop")
	assert.Contains(t, err.Error(), "400")
}

func TestStoreUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	err := s.Store(context.Background(), testMessage(), "INBOX", "a@x.com", core.CategorySpam)
	require.Error(t, err)
}

func TestStoreAcceptedWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails/_doc", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	err := s.Store(context.Background(), testMessage(), "INBOX", "a@x.com", core.CategoryInterested)
	assert.NoError(t, err)
}

func TestEnsureIndexToleratesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"}}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	assert.NoError(t, s.EnsureIndex(context.Background()))
}

func TestEnsureIndexSurfacesOtherFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"security_exception"}}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	require.Error(t, s.EnsureIndex(context.Background()))
}

func TestCountForAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails/_count", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":7}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "emails", "", "", zap.NewNop())

	count, err := s.CountForAccount(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
