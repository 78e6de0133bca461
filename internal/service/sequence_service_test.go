package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceNumbersAreDayScopedAndMonotone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	day := time.Now().Format("20060102")

	first, err := svc.Next(ctx, SeqWorkOrder)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("WO-%s-00001", day), first)

	second, err := svc.Next(ctx, SeqWorkOrder)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("WO-%s-00002", day), second)
}

func TestSequencePrefixesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSequenceService(db)
	ctx := context.Background()

	wo, err := svc.Next(ctx, SeqWorkOrder)
	require.NoError(t, err)
	ba, err := svc.Next(ctx, SeqBatch)
	require.NoError(t, err)

	assert.Contains(t, wo, "WO-")
	assert.Contains(t, ba, "BA-")
	assert.Contains(t, wo, "-00001")
	assert.Contains(t, ba, "-00001")
}
