package handlers

import (
	"context"
	"io"
	"sync"
)

type mockStorage struct {
	mu          sync.Mutex
	SaveFn      func(name string, data []byte, contentType string) (string, error)
	DeleteFn    func(ref string) error
	SavedNames  []string
	DeleteCalls []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{}
}

func (m *mockStorage) Save(_ context.Context, name string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.SavedNames = append(m.SavedNames, name)
	m.mu.Unlock()
	if m.SaveFn != nil {
		return m.SaveFn(name, data, contentType)
	}
	return "https://storage.example.com/products/" + name, nil
}

func (m *mockStorage) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, ref)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ref)
	}
	return nil
}
