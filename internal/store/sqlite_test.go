package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dossier-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDossier(domain, configID string, at time.Time) *model.AccountDossier {
	return &model.AccountDossier{
		Domain: domain,
		Firmographics: model.Firmographics{
			CompanyName: "Acme",
		},
		Signals: []model.Signal{},
		Diagnosis: model.GTMDiagnosis{
			FitTier:          model.FitTierB,
			DiagnosisLabel:   "Strong fit",
			ReasoningBullets: []string{"hiring SDRs"},
			Confidence:       0.8,
			EvidenceIDs:      []string{"ev_1"},
		},
		Meta: model.DossierMeta{
			ConfigID:    configID,
			GeneratedAt: at,
			Version:     model.SchemaVersion,
		},
	}
}

func TestSQLite_GetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	e, err := s.GetDossier(context.Background(), "acme.com", "cfg")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestSQLite_PutGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutDossier(ctx, testDossier("acme.com", "cfg", at)))

	e, err := s.GetDossier(ctx, "acme.com", "cfg")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "acme.com", e.Domain)
	assert.Equal(t, "cfg", e.ConfigID)
	assert.True(t, at.Equal(e.CachedAt))
	assert.Equal(t, model.FitTierB, e.Dossier.Diagnosis.FitTier)
	assert.Equal(t, []string{"ev_1"}, e.Dossier.Diagnosis.EvidenceIDs)

	// Different config is a different entry.
	other, err := s.GetDossier(ctx, "acme.com", "other")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestSQLite_PutUpserts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	require.NoError(t, s.PutDossier(ctx, testDossier("acme.com", "cfg", first)))

	d := testDossier("acme.com", "cfg", second)
	d.Diagnosis.FitTier = model.FitTierA
	require.NoError(t, s.PutDossier(ctx, d))

	e, err := s.GetDossier(ctx, "acme.com", "cfg")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, model.FitTierA, e.Dossier.Diagnosis.FitTier)
	assert.True(t, second.Equal(e.CachedAt))
}

func TestSQLite_PutNil(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.Error(t, s.PutDossier(context.Background(), nil))
}

func TestSQLite_Purge(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutDossier(ctx, testDossier("old.com", "cfg", now.Add(-30*24*time.Hour))))
	require.NoError(t, s.PutDossier(ctx, testDossier("new.com", "cfg", now.Add(-time.Hour))))

	n, err := s.Purge(ctx, now.Add(-14*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err := s.GetDossier(ctx, "old.com", "cfg")
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = s.GetDossier(ctx, "new.com", "cfg")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestEntry_Age(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := &Entry{CachedAt: at}
	assert.Equal(t, 36*time.Hour, e.Age(at.Add(36*time.Hour)))
}
