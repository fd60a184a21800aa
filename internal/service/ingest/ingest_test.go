package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secmonitor/internal/config"
	monitorModel "secmonitor/internal/model/monitor"
)

// recordingIngester 记录处理顺序
type recordingIngester struct {
	mu       sync.Mutex
	order    map[string][]string
	inFlight map[string]int
	overlap  atomic.Bool
	delay    time.Duration
	panicOn  string
}

func newRecordingIngester(delay time.Duration) *recordingIngester {
	return &recordingIngester{order: map[string][]string{}, inFlight: map[string]int{}, delay: delay}
}

func (r *recordingIngester) Ingest(ctx context.Context, s *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error) {
	if s.AssessmentID == r.panicOn {
		panic("bad snapshot")
	}
	r.mu.Lock()
	r.inFlight[s.TenantID]++
	if r.inFlight[s.TenantID] > 1 {
		r.overlap.Store(true)
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.inFlight[s.TenantID]--
	r.order[s.TenantID] = append(r.order[s.TenantID], s.AssessmentID)
	r.mu.Unlock()
	return &monitorModel.IngestResult{AssessmentID: s.AssessmentID, TenantID: s.TenantID}, nil
}

func snap(tenant, id string) *monitorModel.SecuritySnapshot {
	return &monitorModel.SecuritySnapshot{TenantID: tenant, AssessmentID: id, Timestamp: time.Now()}
}

func TestPipelineSerializesPerTenant(t *testing.T) {
	ing := newRecordingIngester(time.Millisecond)
	p := NewPipeline(ing, 4, 16, nil)
	p.Start()

	var wg sync.WaitGroup
	tenants := []string{"acme", "globex", "initech"}
	for _, tenant := range tenants {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			require.NoError(t, p.Enqueue(context.Background(), snap(tenant, fmt.Sprintf("%s-%02d", tenant, i)), func(*monitorModel.IngestResult, error) {
				wg.Done()
			}))
		}
	}
	wg.Wait()
	require.NoError(t, p.Stop(context.Background()))

	assert.False(t, ing.overlap.Load())
	for _, tenant := range tenants {
		require.Len(t, ing.order[tenant], 10)
		for i, id := range ing.order[tenant] {
			assert.Equal(t, fmt.Sprintf("%s-%02d", tenant, i), id)
		}
	}
}

func TestPipelineSubmit(t *testing.T) {
	p := NewPipeline(newRecordingIngester(0), 2, 4, nil)
	p.Start()
	defer p.Stop(context.Background())

	res, err := p.Submit(context.Background(), snap("acme", "a1"))
	require.NoError(t, err)
	assert.Equal(t, "a1", res.AssessmentID)

	_, err = p.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, monitorModel.ErrInvalidArgument)
}

func TestPipelineWorkerForIsStable(t *testing.T) {
	p := NewPipeline(newRecordingIngester(0), 8, 1, nil)
	first := p.workerFor("AcmeCorp")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.workerFor("AcmeCorp"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 8)
}

func TestPipelineRecoversPanic(t *testing.T) {
	ing := newRecordingIngester(0)
	ing.panicOn = "bad"
	p := NewPipeline(ing, 1, 4, nil)
	p.Start()
	defer p.Stop(context.Background())

	_, err := p.Submit(context.Background(), snap("acme", "bad"))
	assert.Error(t, err)

	res, err := p.Submit(context.Background(), snap("acme", "good"))
	require.NoError(t, err)
	assert.Equal(t, "good", res.AssessmentID)
}

func TestPipelineSkipsCancelledJobs(t *testing.T) {
	ing := newRecordingIngester(0)
	p := NewPipeline(ing, 1, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var gotErr error
	done := make(chan struct{})
	require.NoError(t, p.Enqueue(ctx, snap("acme", "a1"), func(_ *monitorModel.IngestResult, err error) {
		gotErr = err
		close(done)
	}))
	cancel()

	p.Start()
	<-done
	assert.ErrorIs(t, gotErr, context.Canceled)
	require.NoError(t, p.Stop(context.Background()))
	assert.Empty(t, ing.order["acme"])
}

func TestPipelineStop(t *testing.T) {
	ing := newRecordingIngester(0)
	p := NewPipeline(ing, 2, 8, nil)
	p.Start()

	var processed atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Enqueue(context.Background(), snap("acme", fmt.Sprint(i)), func(*monitorModel.IngestResult, error) {
			processed.Add(1)
		}))
	}
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, int32(5), processed.Load())

	_, err := p.Submit(context.Background(), snap("acme", "late"))
	assert.ErrorIs(t, err, ErrPipelineClosed)
	assert.NoError(t, p.Stop(context.Background()))
}

// syncEnqueuer 同步执行回调
type syncEnqueuer struct {
	calls  int
	result func(s *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error)
}

func (e *syncEnqueuer) Enqueue(ctx context.Context, s *monitorModel.SecuritySnapshot, done Callback) error {
	e.calls++
	done(e.result(s))
	return nil
}

func newTestSubscriber(t *testing.T, e Enqueuer) *Subscriber {
	t.Helper()
	s, err := NewSubscriber(nil, config.NATSConfig{Subject: "assessments.completed", Queue: "secmonitor", DedupeCapacity: 8}, e, nil)
	require.NoError(t, err)
	return s
}

func TestSubscriberDedupesRedelivery(t *testing.T) {
	e := &syncEnqueuer{result: func(s *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error) {
		return &monitorModel.IngestResult{AssessmentID: s.AssessmentID, TenantID: s.TenantID}, nil
	}}
	sub := newTestSubscriber(t, e)

	data, err := json.Marshal(AssessmentCompletedEvent{Type: "assessment.completed", Snapshot: snap("acme", "a1")})
	require.NoError(t, err)

	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: data})
	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: data})
	assert.Equal(t, 1, e.calls)
	assert.True(t, sub.seen.Contains("a1"))
}

func TestSubscriberRetriesAfterFailure(t *testing.T) {
	fail := true
	e := &syncEnqueuer{result: func(s *monitorModel.SecuritySnapshot) (*monitorModel.IngestResult, error) {
		if fail {
			return nil, errors.New("storage unavailable")
		}
		return &monitorModel.IngestResult{AssessmentID: s.AssessmentID}, nil
	}}
	sub := newTestSubscriber(t, e)

	data, err := json.Marshal(snap("acme", "a1"))
	require.NoError(t, err)

	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: data})
	assert.False(t, sub.seen.Contains("a1"))

	fail = false
	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: data})
	assert.Equal(t, 2, e.calls)
	assert.True(t, sub.seen.Contains("a1"))
}

func TestSubscriberDropsMalformed(t *testing.T) {
	e := &syncEnqueuer{}
	sub := newTestSubscriber(t, e)

	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: []byte("{not json")})
	sub.handle(&nats.Msg{Subject: "assessments.completed", Data: []byte(`{"tenant_id":"acme"}`)})
	assert.Equal(t, 0, e.calls)
}

func TestDecodeEvent(t *testing.T) {
	s, err := decodeEvent([]byte(`{"snapshot":{"assessment_id":"a1","tenant_id":"acme"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a1", s.AssessmentID)

	s, err = decodeEvent([]byte(`{"assessment_id":"a2","tenant_id":"acme","overall_score":80}`))
	require.NoError(t, err)
	assert.Equal(t, 80, s.OverallScore)
}
