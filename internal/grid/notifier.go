package grid

import (
	"context"
	"time"

	"github.com/SAP-F-2025/answersheet-service/internal/store"
)

// Notice describes a persistence failure the user should see.
type Notice struct {
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// StoreNotifier publishes notices under KeyNotification.
type StoreNotifier struct {
	Store *store.Store
}

func (n StoreNotifier) Notify(_ context.Context, notice Notice) {
	if n.Store != nil {
		n.Store.Set(KeyNotification, notice)
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice Notice)

func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}
