package engine

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *mockStore) ListMaterials(ctx context.Context, productID string) ([]model.Material, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Material), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, run model.CalculationRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockStore) SaveCalculation(ctx context.Context, out model.RunOutput) error {
	return m.Called(ctx, out).Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, warnings []model.Warning) error {
	return m.Called(ctx, runID, warnings).Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID, reason string, warnings []model.Warning) error {
	return m.Called(ctx, runID, reason, warnings).Error(0)
}

func (m *mockStore) LatestAllocations(ctx context.Context, productID string) ([]model.AllocationResult, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AllocationResult), args.Error(1)
}

// --- Waterfall sources ---

type fakeFactors struct {
	staging map[string]float64
}

func (f *fakeFactors) StagingFactor(_ context.Context, name string) (*waterfall.StagingFactor, error) {
	v, ok := f.staging[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	return &waterfall.StagingFactor{Name: name, Factors: waterfall.FactorSet{Climate: waterfall.Float(v)}}, nil
}

func (f *fakeFactors) ProxyFactor(context.Context, string) (*waterfall.ProxyFactor, error) {
	return nil, nil
}

// --- Utility store ---

type fakeUtilities struct {
	records map[string][]model.UtilityRecord
}

func (f *fakeUtilities) UtilityRecords(_ context.Context, facilityID string, _ model.ReportingPeriod) ([]model.UtilityRecord, error) {
	return f.records[facilityID], nil
}
