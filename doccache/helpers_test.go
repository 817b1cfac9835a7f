package doccache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/artifactcache/cache"
)

type fakeDocuments struct {
	mu   sync.Mutex
	docs map[int64]Document
	err  error
}

func newFakeDocuments(docs ...Document) *fakeDocuments {
	f := &fakeDocuments{docs: make(map[int64]Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocuments) GetDocument(_ context.Context, id int64) (Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Document{}, f.err
	}
	doc, ok := f.docs[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocuments) put(doc Document) {
	f.mu.Lock()
	f.docs[doc.ID] = doc
	f.mu.Unlock()
}

func (f *fakeDocuments) remove(id int64) {
	f.mu.Lock()
	delete(f.docs, id)
	f.mu.Unlock()
}

type fakeClassifier struct {
	version int
	hash    []byte
}

func (c fakeClassifier) FormatVersion() int { return c.version }
func (c fakeClassifier) StateHash() []byte  { return c.hash }

// recordingStore counts calls and can fail every operation.
type recordingStore struct {
	cache.Store

	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newRecordingStore(inner cache.Store) *recordingStore {
	return &recordingStore{Store: inner, calls: make(map[string]int)}
}

func (s *recordingStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.err
}

func (s *recordingStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := s.record("get"); err != nil {
		return nil, false, err
	}
	return s.Store.Get(ctx, key)
}

func (s *recordingStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := s.record("getmany"); err != nil {
		return nil, err
	}
	return s.Store.GetMany(ctx, keys)
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.record("set"); err != nil {
		return err
	}
	return s.Store.Set(ctx, key, value, ttl)
}

func (s *recordingStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.record("touch"); err != nil {
		return err
	}
	return s.Store.Touch(ctx, key, ttl)
}

func (s *recordingStore) Delete(ctx context.Context, key string) error {
	if err := s.record("delete"); err != nil {
		return err
	}
	return s.Store.Delete(ctx, key)
}

func strPtr(s string) *string { return &s }

type fixture struct {
	store *cache.MemoryStore
	docs  *fakeDocuments
	epoch *Epoch
	mgr   *Manager
}

func newFixture(t *testing.T, docs ...Document) *fixture {
	t.Helper()
	store := cache.NewMemoryStore()
	documents := newFakeDocuments(docs...)
	epoch := NewEpoch(3)
	mgr, err := New(store, documents, epoch)
	require.NoError(t, err)
	return &fixture{store: store, docs: documents, epoch: epoch, mgr: mgr}
}
