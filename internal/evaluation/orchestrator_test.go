package evaluation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai-judge/internal/errdefs"
	"ai-judge/internal/qa"
	"ai-judge/internal/schemas"
)

type judgeList []schemas.Judge

func (l judgeList) List(context.Context) ([]schemas.Judge, error) { return l, nil }

type failingJudges struct{ err error }

func (f failingJudges) List(context.Context) ([]schemas.Judge, error) { return nil, f.err }

type submissionList []schemas.Submission

func (l submissionList) List(context.Context, string) ([]schemas.Submission, error) { return l, nil }

type assignmentList []schemas.Assignment

func (l assignmentList) List(context.Context, string) ([]schemas.Assignment, error) { return l, nil }

type memStore struct {
	mu    sync.Mutex
	evals []schemas.Evaluation
	fail  func(schemas.Evaluation) error
}

func (s *memStore) Append(_ context.Context, e schemas.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(e); err != nil {
			return err
		}
	}
	s.evals = append(s.evals, e)
	return nil
}

func (s *memStore) all() []schemas.Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schemas.Evaluation(nil), s.evals...)
}

type fakeInvoker struct {
	configErr error
	calls     atomic.Int64
	fn        func(qa.Request) (*qa.JudgeResult, error)
}

func (f *fakeInvoker) CheckConfig() error { return f.configErr }
func (f *fakeInvoker) Provider() string   { return "fake" }

func (f *fakeInvoker) Invoke(_ context.Context, req qa.Request) (*qa.JudgeResult, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(req)
	}
	return &qa.JudgeResult{Verdict: schemas.VerdictPass, Reasoning: "ok", LatencyMS: 5}, nil
}

type progressLog struct {
	mu        sync.Mutex
	snapshots []schemas.Progress
}

func (l *progressLog) Publish(_ context.Context, _ string, p schemas.Progress) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, p)
	return nil
}

func (l *progressLog) all() []schemas.Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schemas.Progress(nil), l.snapshots...)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) EvaluationAppended(ctx context.Context, e schemas.Evaluation) error {
	return m.Called(ctx, e).Error(0)
}

func question(id, text string) schemas.Question {
	return schemas.Question{Rev: 1, Data: schemas.QuestionData{ID: id, QuestionType: "free_form", QuestionText: text}}
}

// fixture: two submissions with q1 (j1 active, j2 inactive), q2 assigned
// through the prefixed id to j1 and j3, q3 unassigned.
func fixture() (judgeList, submissionList, assignmentList) {
	judges := judgeList{
		{ID: " j1 ", Name: "Strict", GradingModel: "gpt-4o", GradingPrompt: "Grade strictly.", Active: true},
		{ID: "j2", Name: "Off", GradingModel: "gpt-4o", GradingPrompt: "Grade loosely.", Active: false},
		{ID: "j3", Name: "Lenient", GradingModel: "gpt-4o-mini", GradingPrompt: "Grade kindly.", Active: true},
		{ID: "   ", Name: "Broken", Active: true},
	}
	var subs submissionList
	for _, id := range []string{"sub_1", "sub_2"} {
		subs = append(subs, schemas.Submission{
			ID: id, QueueID: "queue_1", LabelingTaskID: "task_1", CreatedAt: 1,
			Questions: []schemas.Question{question("q1", "Why?"), question("q2", "How?"), question("q3", "When?")},
			Answers:   map[string]*schemas.Answer{"q1": {FreeForm: "Because."}},
		})
	}
	assigns := assignmentList{
		{QueueID: "queue_1", QuestionTemplateID: "q1", JudgeIDs: []string{"j1", "j2"}},
		{QueueID: "queue_1", QuestionTemplateID: "queue_1_q2", JudgeIDs: []string{"j1", "j3"}},
	}
	return judges, subs, assigns
}

func newOrchestrator(inv Invoker, store *memStore, sink ProgressSink, pub Publisher) *Orchestrator {
	judges, subs, assigns := fixture()
	return New(Deps{
		Judges:      judges,
		Submissions: subs,
		Assignments: assigns,
		Evaluations: store,
		Invoker:     inv,
		Progress:    sink,
		Events:      pub,
	}, 4, zap.NewNop())
}

func TestPlan(t *testing.T) {
	o := newOrchestrator(&fakeInvoker{}, &memStore{}, nil, nil)

	tasks, err := o.Plan(context.Background(), "queue_1")
	require.NoError(t, err)
	// per submission: q1 -> j1, q2 -> j1 + j3
	require.Len(t, tasks, 6)

	for _, task := range tasks {
		assert.NotEqual(t, "j2", task.Judge.ID)
		assert.NotEqual(t, "q3", task.Question.Data.ID)
	}
	assert.Equal(t, "j1", tasks[0].Judge.ID)
	assert.Equal(t, "Because.", tasks[0].Answer.FreeForm)
	assert.Nil(t, tasks[1].Answer)
}

func TestPlanSkipsQuestionsWithoutActiveJudges(t *testing.T) {
	judges, subs, _ := fixture()

	for name, assigns := range map[string]assignmentList{
		"empty judge set": {{QueueID: "queue_1", QuestionTemplateID: "q1", JudgeIDs: []string{}}},
		"inactive only":   {{QueueID: "queue_1", QuestionTemplateID: "q1", JudgeIDs: []string{"j2"}}},
		"unknown only":    {{QueueID: "queue_1", QuestionTemplateID: "q1", JudgeIDs: []string{"gone"}}},
	} {
		t.Run(name, func(t *testing.T) {
			o := New(Deps{Judges: judges, Submissions: subs, Assignments: assigns, Evaluations: &memStore{}, Invoker: &fakeInvoker{}}, 2, zap.NewNop())

			tasks, err := o.Plan(context.Background(), "queue_1")
			require.NoError(t, err)
			assert.Empty(t, tasks)

			p, err := o.Run(context.Background(), "queue_1")
			require.NoError(t, err)
			assert.Zero(t, p)
		})
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("all tasks settle", func(t *testing.T) {
		store := &memStore{}
		sink := &progressLog{}
		pub := &mockPublisher{}
		pub.On("EvaluationAppended", mock.Anything, mock.Anything).Return(nil)
		inv := &fakeInvoker{}

		p, err := newOrchestrator(inv, store, sink, pub).Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.Equal(t, schemas.Progress{Planned: 6, Done: 6}, p)
		assert.True(t, p.Settled())
		assert.EqualValues(t, 6, inv.calls.Load())

		evals := store.all()
		require.Len(t, evals, 6)
		for _, e := range evals {
			assert.NotEmpty(t, e.ID)
			assert.Equal(t, schemas.VerdictPass, e.Verdict)
			assert.Equal(t, "fake", e.Provider)
			assert.Empty(t, e.Error)
		}
		pub.AssertNumberOfCalls(t, "EvaluationAppended", 6)

		snaps := sink.all()
		require.NotEmpty(t, snaps)
		assert.Equal(t, schemas.Progress{Planned: 6}, snaps[0])
		assert.Equal(t, p, snaps[len(snaps)-1])
		for _, s := range snaps {
			assert.Equal(t, 6, s.Planned)
			assert.LessOrEqual(t, s.Done+s.Failed, s.Planned)
		}
	})

	t.Run("answers are JSON encoded", func(t *testing.T) {
		var mu sync.Mutex
		seen := map[string]bool{}
		inv := &fakeInvoker{fn: func(req qa.Request) (*qa.JudgeResult, error) {
			mu.Lock()
			seen[req.Answer] = true
			mu.Unlock()
			return &qa.JudgeResult{Verdict: schemas.VerdictFail}, nil
		}}

		_, err := newOrchestrator(inv, &memStore{}, nil, nil).Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.True(t, seen[`{"freeForm":"Because."}`])
		assert.True(t, seen["null"])
	})

	t.Run("rerun appends", func(t *testing.T) {
		store := &memStore{}
		o := newOrchestrator(&fakeInvoker{}, store, nil, nil)

		_, err := o.Run(ctx, "queue_1")
		require.NoError(t, err)
		_, err = o.Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.Len(t, store.all(), 12)
	})

	t.Run("failing invoker records every task", func(t *testing.T) {
		store := &memStore{}
		inv := &fakeInvoker{fn: func(qa.Request) (*qa.JudgeResult, error) {
			return nil, &errdefs.InvocationError{Model: "gpt-4o", Err: errors.New("503")}
		}}

		p, err := newOrchestrator(inv, store, nil, nil).Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.Equal(t, schemas.Progress{Planned: 6, Failed: 6}, p)

		evals := store.all()
		require.Len(t, evals, 6)
		for _, e := range evals {
			assert.Equal(t, schemas.VerdictInconclusive, e.Verdict)
			assert.Contains(t, e.Error, "503")
		}
	})

	t.Run("write failure counts as failed", func(t *testing.T) {
		var once sync.Once
		store := &memStore{fail: func(e schemas.Evaluation) error {
			var err error
			if e.Error == "" {
				once.Do(func() { err = &errdefs.PersistenceError{Op: "append evaluation", Err: errors.New("conn reset")} })
			}
			return err
		}}

		p, err := newOrchestrator(&fakeInvoker{}, store, nil, nil).Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.Equal(t, schemas.Progress{Planned: 6, Done: 5, Failed: 1}, p)

		var errored int
		for _, e := range store.all() {
			if e.Error != "" {
				errored++
				assert.Contains(t, e.Error, "conn reset")
			}
		}
		assert.Equal(t, 1, errored)
	})

	t.Run("missing credential aborts before any call", func(t *testing.T) {
		sink := &progressLog{}
		inv := &fakeInvoker{configErr: errdefs.ErrConfiguration}

		p, err := newOrchestrator(inv, &memStore{}, sink, nil).Run(ctx, "queue_1")
		assert.ErrorIs(t, err, errdefs.ErrConfiguration)
		assert.Zero(t, p)
		assert.Zero(t, inv.calls.Load())
		assert.Equal(t, []schemas.Progress{{}}, sink.all())
	})

	t.Run("load failure resets published progress", func(t *testing.T) {
		sink := &progressLog{}
		_, subs, assigns := fixture()

		_, err := newOrchestrator(&fakeInvoker{}, &memStore{}, sink, nil).Run(ctx, "queue_1")
		require.NoError(t, err)

		broken := New(Deps{
			Judges:      failingJudges{err: errors.New("db down")},
			Submissions: subs,
			Assignments: assigns,
			Evaluations: &memStore{},
			Invoker:     &fakeInvoker{},
			Progress:    sink,
		}, 2, zap.NewNop())
		p, err := broken.Run(ctx, "queue_1")
		assert.ErrorContains(t, err, "db down")
		assert.Zero(t, p)

		snaps := sink.all()
		assert.Equal(t, schemas.Progress{}, snaps[len(snaps)-1])
	})

	t.Run("empty queue", func(t *testing.T) {
		o := New(Deps{
			Judges:      judgeList{},
			Submissions: submissionList{},
			Assignments: assignmentList{},
			Evaluations: &memStore{},
			Invoker:     &fakeInvoker{},
		}, 0, zap.NewNop())

		p, err := o.Run(ctx, "queue_1")
		require.NoError(t, err)
		assert.Zero(t, p)
	})
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	inv := &fakeInvoker{fn: func(qa.Request) (*qa.JudgeResult, error) {
		n := inFlight.Add(1)
		for {
			m := peak.Load()
			if n <= m || peak.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return &qa.JudgeResult{Verdict: schemas.VerdictPass}, nil
	}}

	judges, subs, assigns := fixture()
	o := New(Deps{Judges: judges, Submissions: subs, Assignments: assigns, Evaluations: &memStore{}, Invoker: inv}, 2, zap.NewNop())

	p, err := o.Run(context.Background(), "queue_1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.Done)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestStart(t *testing.T) {
	release := make(chan struct{})
	inv := &fakeInvoker{fn: func(qa.Request) (*qa.JudgeResult, error) {
		<-release
		return &qa.JudgeResult{Verdict: schemas.VerdictPass}, nil
	}}
	store := &memStore{}

	ctx, cancel := context.WithCancel(context.Background())
	h := newOrchestrator(inv, store, nil, nil).Start(ctx, "queue_1")

	require.Eventually(t, func() bool { return h.Progress().Planned == 6 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.Progress().Done)

	// cancelling the caller does not abort dispatched tasks
	cancel()
	close(release)

	p, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, schemas.Progress{Planned: 6, Done: 6}, p)
	assert.Len(t, store.all(), 6)
}
