package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/dossier-cli/internal/fetch"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/reasoning"
	"github.com/sells-group/dossier-cli/internal/search"
	"github.com/sells-group/dossier-cli/internal/store"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Name() string { return "mock-search" }

func (m *mockSearcher) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	args := m.Called(ctx, query, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Result), args.Error(1)
}

// --- Fetcher Stub ---

type stubFetcher struct {
	mu      sync.Mutex
	results map[string]fetch.Result
	calls   []string
}

func newStubFetcher(results map[string]fetch.Result) *stubFetcher {
	return &stubFetcher{results: results}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) fetch.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if r, ok := f.results[url]; ok {
		return r
	}
	return fetch.Result{
		Status: fetch.StatusError,
		Error:  &fetch.ErrorInfo{StatusCode: 404, Message: "not found"},
	}
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResult(content string) fetch.Result {
	return fetch.Result{Content: content, Status: fetch.StatusSuccess, Method: model.ExtractDirect}
}

// --- Reasoner Mock ---

type mockReasoner struct {
	mock.Mock
}

func (m *mockReasoner) Complete(ctx context.Context, prompt string, opts reasoning.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

func withLabel(label string) any {
	return mock.MatchedBy(func(o reasoning.Options) bool {
		return o.Label == label && o.JSONMode && o.Temperature == 0
	})
}

// --- CRM Mock ---

type mockCRM struct {
	mock.Mock
}

func (m *mockCRM) GetCompanyByDomain(ctx context.Context, domain string) (*model.CompanyRecord, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompanyRecord), args.Error(1)
}

func (m *mockCRM) UpdateCompany(ctx context.Context, id string, props map[string]any) error {
	return m.Called(ctx, id, props).Error(0)
}

func (m *mockCRM) SuggestUpdate(ctx context.Context, id string, props map[string]any) error {
	return m.Called(ctx, id, props).Error(0)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetDossier(ctx context.Context, domain, configID string) (*store.Entry, error) {
	args := m.Called(ctx, domain, configID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Entry), args.Error(1)
}

func (m *mockStore) PutDossier(ctx context.Context, d *model.AccountDossier) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// sequentialIDs returns a generator producing ev_1, ev_2, ...
func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ev_%d", n)
	}
}

func testConfig() model.ResearchConfig {
	return model.ResearchConfig{
		ConfigID:     "cfg_saas",
		Proposition:  "Outbound automation for SaaS sales teams",
		Persona:      "VP Sales",
		ICPRulesetID: "icp_saas_midmarket",
	}
}

func startedState(domain string) model.RunState {
	s, err := model.NewRunState(domain, "", testConfig().WithDefaults()).Advance(model.RunStatusStarting)
	if err != nil {
		panic(err)
	}
	return s
}

func strPtr(s string) *string { return &s }
