package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantityChainViolations(t *testing.T) {
	cases := []struct {
		name string
		wo   WorkOrder
		want int
	}{
		{
			name: "healthy chain",
			wo:   WorkOrder{QtyOrdered: 1000, QtyProduced: 600, QtyRejected: 10, QtyQCApproved: 590, QtyPacked: 500, QtyDispatched: 400},
			want: 0,
		},
		{
			name: "dispatched over packed",
			wo:   WorkOrder{QtyOrdered: 100, QtyProduced: 100, QtyQCApproved: 100, QtyPacked: 50, QtyDispatched: 60},
			want: 1,
		},
		{
			name: "approved over good produced",
			wo:   WorkOrder{QtyOrdered: 100, QtyProduced: 80, QtyRejected: 20, QtyQCApproved: 70},
			want: 1,
		},
		{
			name: "produced over ordered without overage",
			wo:   WorkOrder{QtyOrdered: 100, QtyProduced: 110},
			want: 1,
		},
		{
			name: "overage authorizes extra production",
			wo:   WorkOrder{QtyOrdered: 100, AuthorizedOverage: 20, QtyProduced: 110},
			want: 0,
		},
		{
			name: "multiple breaks reported together",
			wo:   WorkOrder{QtyOrdered: 100, QtyProduced: 150, QtyQCApproved: 160, QtyPacked: 170, QtyDispatched: 180},
			want: 4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, tc.wo.QuantityChainViolations(), tc.want)
		})
	}
}

func TestBatchStageRank(t *testing.T) {
	assert.Less(t, BatchStageRank(BatchStageCutting), BatchStageRank(BatchStageProduction))
	assert.Less(t, BatchStageRank(BatchStageProduction), BatchStageRank(BatchStageExternal))
	assert.Less(t, BatchStageRank(BatchStageExternal), BatchStageRank(BatchStageQC))
	assert.Less(t, BatchStageRank(BatchStageQC), BatchStageRank(BatchStagePacking))
	assert.Less(t, BatchStageRank(BatchStagePacking), BatchStageRank(BatchStageDispatched))
	assert.Zero(t, BatchStageRank("UNKNOWN"))
}

func TestMovementOutstanding(t *testing.T) {
	m := ExternalMovement{QtySent: 200, QtyReturned: 150, QtyRejected: 20, Status: MovementStatusPartiallyReturned}
	assert.Equal(t, 30, m.Outstanding())

	m.Status = MovementStatusForwarded
	assert.Equal(t, 0, m.Outstanding())
}
