package monitor

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	monitorModel "secmonitor/internal/model/monitor"
)

// setupTestDB 需要设置 SECMONITOR_TEST_MYSQL_DSN，否则跳过
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("SECMONITOR_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SECMONITOR_TEST_MYSQL_DSN not set, skipping MySQL integration test")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func uniqueTenant(t *testing.T) string {
	return fmt.Sprintf("it-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestMySQLSnapshotRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := NewSnapshotRepository(db)
	tenant := uniqueTenant(t)
	base := time.Now().UTC().Truncate(time.Second).Add(-48 * time.Hour)

	for i, d := range []int{2, 0, 1} {
		s := &monitorModel.SecuritySnapshot{
			Timestamp:      base.Add(time.Duration(d) * time.Hour),
			AssessmentID:   fmt.Sprintf("%s-%d", tenant, i),
			TenantID:       tenant,
			OverallScore:   60 + d,
			RiskLevel:      monitorModel.RiskLevelMedium,
			CategoryScores: map[string]int{monitorModel.CategoryCloud: 70},
		}
		require.NoError(t, r.Append(ctx, s))
	}

	dup := &monitorModel.SecuritySnapshot{Timestamp: base, AssessmentID: tenant + "-0", TenantID: tenant, RiskLevel: monitorModel.RiskLevelLow}
	assert.ErrorIs(t, r.Append(ctx, dup), monitorModel.ErrDuplicateAssessment)

	var scores []int
	for s, err := range r.History(ctx, tenant, time.Time{}) {
		require.NoError(t, err)
		scores = append(scores, s.OverallScore)
	}
	assert.Equal(t, []int{60, 61, 62}, scores)

	latest, err := r.Latest(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 62, latest.OverallScore)
	assert.Equal(t, 70, latest.CategoryScores[monitorModel.CategoryCloud])

	_, err = r.Latest(ctx, tenant+"-none")
	assert.ErrorIs(t, err, monitorModel.ErrNotFound)

	// 重复提交不覆盖首次写入
	stored, err := r.Get(ctx, tenant+"-0")
	require.NoError(t, err)
	assert.Equal(t, 62, stored.OverallScore)
	_, err = r.Get(ctx, tenant+"-missing")
	assert.ErrorIs(t, err, monitorModel.ErrNotFound)
}

func TestMySQLAlertRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := NewAlertRepository(db)
	tenant := uniqueTenant(t)

	mk := func(assessment string) *monitorModel.SecurityAlert {
		return &monitorModel.SecurityAlert{
			AlertID:         monitorModel.AlertID(tenant, monitorModel.MetricOverallScore, assessment),
			TenantID:        tenant,
			AssessmentID:    assessment,
			Metric:          monitorModel.MetricOverallScore,
			Severity:        monitorModel.SeverityCritical,
			Message:         "overall_score 55 < 60",
			CurrentValue:    55,
			ThresholdValue:  60,
			Recommendations: []string{"review"},
			CreatedAt:       time.Now().UTC(),
		}
	}

	first := mk("s1")
	created, _, err := r.CreateUnlessActive(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	created, existing, err := r.CreateUnlessActive(ctx, mk("s2"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.AlertID, existing.AlertID)

	_, err = r.Acknowledge(ctx, first.AlertID, time.Now())
	require.NoError(t, err)
	_, err = r.Acknowledge(ctx, first.AlertID, time.Now())
	assert.ErrorIs(t, err, monitorModel.ErrNotFound)

	created, _, err = r.CreateUnlessActive(ctx, mk("s3"))
	require.NoError(t, err)
	assert.True(t, created)

	active, err := r.List(ctx, tenant, monitorModel.AlertFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s3", active[0].AssessmentID)
}

func TestMySQLThresholdRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := NewThresholdRepository(db)
	tenant := uniqueTenant(t)

	_, err := r.Get(ctx, tenant)
	assert.ErrorIs(t, err, monitorModel.ErrNotFound)

	rules := monitorModel.DefaultThresholds()[:2]
	require.NoError(t, r.Replace(ctx, tenant, rules))
	got, err := r.Get(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, rules, got)

	require.NoError(t, r.Replace(ctx, tenant, nil))
	_, err = r.Get(ctx, tenant)
	assert.ErrorIs(t, err, monitorModel.ErrNotFound)
}
