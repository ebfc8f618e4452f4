package services

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/logger"
	"github.com/sp2025/darkwatch/internal/models"
)

func TestSensitivityService_GetDefaultsAndPersists(t *testing.T) {
	db := openTestDB(t)
	svc := NewSensitivityService(db, nil)

	cfg, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultGamma, cfg.Gamma)

	var count int64
	db.Model(&models.SensitivityConfig{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSensitivityService_SaveClamps(t *testing.T) {
	db := openTestDB(t)
	svc := NewSensitivityService(db, NewAuditService(db))
	ctx := context.Background()

	tests := []struct {
		in   float64
		want float64
	}{
		{1.4, 1.0},
		{-0.1, 0.0},
		{0.73, 0.73},
	}
	for _, tt := range tests {
		cfg, err := svc.Save(ctx, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.Gamma)

		got, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Gamma)
	}

	var count int64
	db.Model(&models.SensitivityConfig{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSensitivityService_SaveRejectsNonFinite(t *testing.T) {
	db := openTestDB(t)
	svc := NewSensitivityService(db, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, 0.2)
	require.NoError(t, err)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.Save(ctx, v)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	}

	cfg, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Gamma)
}

func TestSensitivityService_SaveIsAudited(t *testing.T) {
	db := openTestDB(t)
	audit := NewAuditService(db)
	svc := NewSensitivityService(db, audit)
	ctx := WithActor(context.Background(), "lead")

	_, err := svc.Save(ctx, 0.9)
	require.NoError(t, err)

	entries, err := audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sensitivity.save", entries[0].Action)
	assert.Equal(t, "lead", entries[0].Actor)
}

func TestCoerceGamma(t *testing.T) {
	ok := []struct {
		in   interface{}
		want float64
	}{
		{0.4, 0.4},
		{float32(0.5), 0.5},
		{1, 1},
		{int64(0), 0},
		{json.Number("0.25"), 0.25},
		{" 0.6 ", 0.6},
		{"1.4", 1.4},
	}
	for _, tt := range ok {
		got, err := CoerceGamma(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-6)
	}

	bad := []interface{}{nil, "abc", "NaN", true, []int{1}, json.Number("x"), math.Inf(1)}
	for _, in := range bad {
		_, err := CoerceGamma(in)
		assert.True(t, IsValidation(err), "%v", in)
	}
}

func TestSensitivityService_SaveLogsAuditFailure(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.RuleAudit{}))
	svc := NewSensitivityService(db, NewAuditService(db))

	buf := &bytes.Buffer{}
	logger.Init(false, buf)
	t.Cleanup(func() { logger.Init(false, nil) })

	cfg, err := svc.Save(context.Background(), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Gamma)
	assert.Contains(t, buf.String(), "failed to record sensitivity audit")
	assert.Contains(t, buf.String(), `"level":"warning"`)
}
