package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/semmidev/dbdrive/internal/domain"
)

type memoryObject struct {
	entry domain.RemoteEntry
	body  []byte
}

// memoryStore keeps objects in insertion order with a monotonic clock.
type memoryStore struct {
	mu        sync.Mutex
	objects   map[string]*memoryObject
	clock     time.Time
	seq       int
	listErr   error
	uploadErr error
	deleteErr map[string]error
	deleted   []string
	uploads   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		objects:   map[string]*memoryObject{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		deleteErr: map[string]error{},
	}
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) seed(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	m.objects[id] = &memoryObject{entry: domain.RemoteEntry{ID: id, Name: name, CreatedTime: m.clock}}
}

func (m *memoryStore) List(ctx context.Context, container string, filter domain.RemoteFilter) ([]domain.RemoteEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, &domain.RemoteError{Op: domain.RemoteList, Name: container, Err: m.listErr}
	}
	var out []domain.RemoteEntry
	for _, o := range m.objects {
		if filter.Name != "" && o.entry.Name != filter.Name {
			continue
		}
		if filter.Name == "" && !strings.HasPrefix(o.entry.Name, filter.Prefix) {
			continue
		}
		out = append(out, o.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.After(out[j].CreatedTime) })
	return out, nil
}

func (m *memoryStore) Upload(ctx context.Context, container, name string, body io.Reader, mimeType string) (string, error) {
	if m.uploadErr != nil {
		return "", &domain.RemoteError{Op: domain.RemoteUpload, Name: name, Err: m.uploadErr}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.clock = m.clock.Add(time.Minute)
	id := fmt.Sprintf("obj-%d", m.seq)
	m.objects[id] = &memoryObject{
		entry: domain.RemoteEntry{ID: id, Name: name, CreatedTime: m.clock, Size: int64(len(data))},
		body:  data,
	}
	m.uploads = append(m.uploads, name)
	return id, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return &domain.RemoteError{Op: domain.RemoteDelete, Name: id, Err: err}
	}
	if _, ok := m.objects[id]; !ok {
		return &domain.RemoteError{Op: domain.RemoteDelete, Name: id, Err: errors.New("not found")}
	}
	delete(m.objects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryStore) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, o := range m.objects {
		out = append(out, o.entry.Name)
	}
	sort.Strings(out)
	return out
}

func (m *memoryStore) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.objects {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type fakeEnumerator struct {
	names []string
	err   error
	calls int
}

func (f *fakeEnumerator) ListDatabases(ctx context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

type fakeDumper struct {
	mu    sync.Mutex
	fail  map[string]error
	hang  map[string]bool
	calls []string
}

func (f *fakeDumper) Dump(ctx context.Context, database, outputPath string) error {
	f.mu.Lock()
	f.calls = append(f.calls, database)
	err := f.fail[database]
	hang := f.hang[database]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hang {
		<-ctx.Done()
		return &domain.DumpFailedError{Database: database, ExitCode: -1, Err: ctx.Err()}
	}
	return os.WriteFile(outputPath, []byte("-- dump of "+database+"\n"), 0644)
}

func (f *fakeDumper) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

// fakeServerDumper also dumps the whole server into one file.
type fakeServerDumper struct {
	fakeDumper
	allErr   error
	allPaths []string
}

func (f *fakeServerDumper) DumpAll(ctx context.Context, outputPath string) error {
	f.mu.Lock()
	f.allPaths = append(f.allPaths, outputPath)
	f.mu.Unlock()
	if f.allErr != nil {
		return f.allErr
	}
	return os.WriteFile(outputPath, []byte("-- dump of all databases\n"), 0644)
}

// recordingLogger captures formatted lines for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, template string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Infof(template string, args ...interface{}) {
	l.add("INFO", template, args...)
}

func (l *recordingLogger) Warnf(template string, args ...interface{}) {
	l.add("WARN", template, args...)
}

func (l *recordingLogger) Errorf(template string, args ...interface{}) {
	l.add("ERROR", template, args...)
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
