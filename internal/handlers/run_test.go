package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evlocker/inspection-pipeline/internal/eventlog"
)

type fakeStatusReader struct {
	statuses []eventlog.TableStatus
}

func (f *fakeStatusReader) Status(context.Context) ([]eventlog.TableStatus, error) {
	return f.statuses, nil
}

func TestHandleLogStatus(t *testing.T) {
	h := NewRunHandler(nil, &fakeStatusReader{
		statuses: []eventlog.TableStatus{
			{Table: eventlog.TableEventHistory, Processed: 12, Errors: 1},
			{Table: eventlog.TableCredentialLog, Processed: 30},
		},
	})

	rec := httptest.NewRecorder()
	h.HandleLogStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tables []eventlog.TableStatus `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tables, 2)
	assert.Equal(t, 12, body.Tables[0].Processed)
	assert.Equal(t, eventlog.TableCredentialLog, body.Tables[1].Table)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewRunHandler(nil, &fakeStatusReader{})

	rec := httptest.NewRecorder()
	h.HandleRunAsync(rec, httptest.NewRequest(http.MethodGet, "/v1/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleRunStatus(rec, httptest.NewRequest(http.MethodPost, "/v1/runs/x", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleLogStatus(rec, httptest.NewRequest(http.MethodPost, "/v1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleRunStatusRequiresID(t *testing.T) {
	h := NewRunHandler(nil, &fakeStatusReader{})

	rec := httptest.NewRecorder()
	h.HandleRunStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
