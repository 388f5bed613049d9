package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/register"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Queue: QueueDefault, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

var _ register.SaleRecorder = (*Client)(nil)

func TestClientRecordSaleEnqueuesTask(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := newClient(fake, testLogger())
	receipt := sampleReceipt("0", "")

	require.NoError(t, client.RecordSale(context.Background(), receipt))
	require.Len(t, fake.tasks, 1)
	require.Equal(t, TaskTypeSaleRecord, fake.tasks[0].Type())

	var payload SaleRecordPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	require.Equal(t, receipt.ID, payload.Receipt.ID)
	require.Len(t, payload.Receipt.Lines, 2)
}

func TestClientRecordSaleTreatsConflictAsRecorded(t *testing.T) {
	client := newClient(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, testLogger())
	require.NoError(t, client.RecordSale(context.Background(), sampleReceipt("0", "")))
}

func TestClientRecordSaleWrapsFailures(t *testing.T) {
	down := errors.New("redis down")
	client := newClient(&fakeEnqueuer{err: down}, testLogger())
	err := client.RecordSale(context.Background(), sampleReceipt("0", ""))
	require.ErrorIs(t, err, down)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Logger: testLogger()})
	require.Error(t, err)

	_, err = NewWorker(WorkerConfig{Logger: testLogger(), Handlers: []TaskHandler{{Type: TaskTypeSaleRecord}}})
	require.Error(t, err)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func serveHealth(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestHealthReportsQueueDepth(t *testing.T) {
	h := &Handler{inspector: fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, logger: testLogger()}
	rr := serveHealth(t, h)
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault, Pending: 3, Retry: 1}, body)
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := serveHealth(t, NewHandler(nil, testLogger()))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"retry":0,"archived":0}`, rr.Body.String())
}

func TestHealthUnavailable(t *testing.T) {
	h := &Handler{inspector: fakeInspector{err: errors.New("dial tcp")}, logger: testLogger()}
	rr := serveHealth(t, h)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
