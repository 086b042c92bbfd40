package verify

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Deep-Context-AI/vera-platform-sub000/internal/judge"
	"github.com/Deep-Context-AI/vera-platform-sub000/internal/model"
	"github.com/Deep-Context-AI/vera-platform-sub000/pkg/registry"
)

// --- Registry Client Mock ---

type mockRegistryClient struct {
	mock.Mock
	source string
}

func (m *mockRegistryClient) Source() string {
	return m.source
}

func (m *mockRegistryClient) Lookup(ctx context.Context, q registry.Query) (*registry.Record, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Record), args.Error(1)
}

// --- Evaluator Mock ---

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Evaluate(ctx context.Context, stepKey string, record map[string]any) (*judge.Verdict, error) {
	args := m.Called(ctx, stepKey, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*judge.Verdict), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadApplication(ctx context.Context, applicationID int64) (*model.Application, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Application), args.Error(1)
}

func (m *mockStore) SaveApplication(ctx context.Context, app *model.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockStore) SetApplicationInProgress(ctx context.Context, applicationID int64, actorID string) error {
	args := m.Called(ctx, applicationID, actorID)
	return args.Error(0)
}

func (m *mockStore) SetApplicationReadyForReview(ctx context.Context, applicationID int64, actorID string) error {
	args := m.Called(ctx, applicationID, actorID)
	return args.Error(0)
}

func (m *mockStore) LogEvent(ctx context.Context, applicationID int64, actorID, action, notes string, preventDuplicates bool) error {
	args := m.Called(ctx, applicationID, actorID, action, notes, preventDuplicates)
	return args.Error(0)
}

func (m *mockStore) RecordChange(ctx context.Context, applicationID int64, stepKey string, status model.StepStatus, data map[string]any, changedBy, notes string) (*model.AuditEntry, error) {
	args := m.Called(ctx, applicationID, stepKey, status, data, changedBy, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditEntry), args.Error(1)
}

func (m *mockStore) LatestChange(ctx context.Context, applicationID int64, stepKey string) (*model.AuditEntry, error) {
	args := m.Called(ctx, applicationID, stepKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditEntry), args.Error(1)
}

func (m *mockStore) LogStepState(ctx context.Context, applicationID int64, stepKey string, decision model.Decision, decidedBy, notes string) (*model.StepState, error) {
	args := m.Called(ctx, applicationID, stepKey, decision, decidedBy, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StepState), args.Error(1)
}

func (m *mockStore) CheckExistingStepState(ctx context.Context, applicationID int64, stepKey string) (*model.StepState, error) {
	args := m.Called(ctx, applicationID, stepKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StepState), args.Error(1)
}

func (m *mockStore) SaveInvocation(ctx context.Context, inv *model.Invocation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
