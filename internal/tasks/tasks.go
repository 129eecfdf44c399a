// Package tasks выполняет фоновые задачи: локально, через SQS или синхронно.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownTask = errors.New("unknown task")

// Handler обрабатывает полезную нагрузку задачи в JSON.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Message - задача в очереди.
type Message struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage сериализует нагрузку задачи.
func NewMessage(name string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return Message{Name: name, Payload: data}, nil
}

// HandlerFor превращает типизированную функцию в Handler.
func HandlerFor[T any](fn func(ctx context.Context, payload T) error) Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
		return fn(ctx, payload)
	}
}

// Registry сопоставляет имена задач с обработчиками.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Run(ctx context.Context, msg Message) error {
	r.mu.RLock()
	h, ok := r.handlers[msg.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, msg.Name)
	}
	if err := h(ctx, msg.Payload); err != nil {
		return fmt.Errorf("task %s: %w", msg.Name, err)
	}
	return nil
}

// Inline выполняет задачу сразу в вызывающей горутине.
type Inline struct {
	registry *Registry
}

func NewInline(registry *Registry) *Inline {
	return &Inline{registry: registry}
}

func (d *Inline) Dispatch(ctx context.Context, name string, payload interface{}) error {
	msg, err := NewMessage(name, payload)
	if err != nil {
		return err
	}
	return d.registry.Run(ctx, msg)
}
