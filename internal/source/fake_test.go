package source

import (
	"context"
	"sync"
	"time"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/model"
)

type fakeSource struct {
	mu          sync.Mutex
	lessonCalls int
	courseCalls int
	LessonsFunc func(ctx context.Context, query map[string]string) ([]model.Lesson, error)
	CoursesFunc func(ctx context.Context, query map[string]string) ([]model.Course, error)
}

func (f *fakeSource) Lessons(ctx context.Context, query map[string]string) ([]model.Lesson, error) {
	f.mu.Lock()
	f.lessonCalls++
	f.mu.Unlock()
	if f.LessonsFunc != nil {
		return f.LessonsFunc(ctx, query)
	}
	return []model.Lesson{}, nil
}

func (f *fakeSource) Courses(ctx context.Context, query map[string]string) ([]model.Course, error) {
	f.mu.Lock()
	f.courseCalls++
	f.mu.Unlock()
	if f.CoursesFunc != nil {
		return f.CoursesFunc(ctx, query)
	}
	return []model.Course{}, nil
}

type setCall struct {
	key   string
	ttl   time.Duration
	ctxOK bool
}

// memStore is an in-memory cache.Store whose operations can be forced to fail.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    []setCall
	deletes []string
	GetErr  error
	SetErr  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, setCall{key: key, ttl: ttl, ctxOK: ctx.Err() == nil})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	delete(m.data, key)
	return nil
}
