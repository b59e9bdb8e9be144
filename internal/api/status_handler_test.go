package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmorneau/taskboard-api/internal/domain"
	"github.com/pmorneau/taskboard-api/internal/store"
)

type stubStatusStore struct {
	statuses []*domain.TaskStatus
	err      error
}

func (s *stubStatusStore) List(context.Context) ([]*domain.TaskStatus, error) {
	return s.statuses, s.err
}

func (s *stubStatusStore) GetByID(context.Context, uuid.UUID) (*domain.TaskStatus, error) {
	return nil, store.ErrStatusNotFound
}

func (s *stubStatusStore) GetDefault(context.Context) (*domain.TaskStatus, error) {
	return nil, store.ErrStatusNotFound
}

func TestListStatusesHandler(t *testing.T) {
	handler := NewStatusHandler(&stubStatusStore{
		statuses: []*domain.TaskStatus{
			{ID: uuid.New(), Name: "Done"},
			{ID: uuid.New(), Name: "To Do", IsDefault: true},
		},
	}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/statuses", nil)
	rec := httptest.NewRecorder()
	http.HandlerFunc(handler.ListStatuses).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Done", resp[0].Name)
	assert.True(t, resp[1].IsDefault)
}

func TestListStatusesHandlerStoreError(t *testing.T) {
	handler := NewStatusHandler(&stubStatusStore{err: errors.New("connection reset")}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/statuses", nil)
	rec := httptest.NewRecorder()
	http.HandlerFunc(handler.ListStatuses).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
