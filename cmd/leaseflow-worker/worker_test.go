package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/leaseflow/leaseflow/pkg/cmd"
	"github.com/leaseflow/leaseflow/pkg/mocks"
	"github.com/leaseflow/leaseflow/pkg/models"
	"github.com/leaseflow/leaseflow/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*worker, *mocks.MockPersistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := mocks.NewMockPersistence()

	engine, err := cmd.NewEngine(logger, p, mocks.NewPermissiveEventBus(), otelhelper.NoopTracer(), cmd.EngineConfig{})
	require.NoError(t, err)

	return &worker{logger: logger, persistence: p, engine: engine}, p
}

func TestValidateSettings(t *testing.T) {
	w, p := newTestWorker(t)

	p.MockSettings().On("ListTenants", mock.Anything, mock.Anything).
		Return([]*models.Tenant{{ID: "tenant-1"}, {ID: "tenant-2"}}, nil)
	p.MockSettings().On("ListProperties", mock.Anything, mock.Anything, "tenant-1").Return([]*models.Property{
		{ID: "property-1", Settings: models.PropertySettings{Renewals: models.RenewalSettings{RenewalCycleStart: 90}}},
		{ID: "property-2", Settings: models.PropertySettings{Renewals: models.RenewalSettings{RenewalCycleStart: 400}}},
	}, nil)
	p.MockSettings().On("ListProperties", mock.Anything, mock.Anything, "tenant-2").Return([]*models.Property{
		{ID: "property-3", Settings: models.PropertySettings{MoveIn: models.MoveInSettings{ConfirmationGraceDays: -1}}},
	}, nil)

	invalid, err := w.validateSettings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, invalid)
	p.AssertAllExpectations(t)
}

func TestValidateSettings_ListFailure(t *testing.T) {
	w, p := newTestWorker(t)

	p.MockSettings().On("ListTenants", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := w.validateSettings(context.Background())

	require.Error(t, err)
}

func TestWorkerClose_ReverseOrder(t *testing.T) {
	w, _ := newTestWorker(t)

	var order []int

	w.onClose(func(context.Context) { order = append(order, 1) })
	w.onClose(func(context.Context) { order = append(order, 2) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.Close(ctx)
	w.Close(ctx)

	assert.Equal(t, []int{2, 1}, order)
}
