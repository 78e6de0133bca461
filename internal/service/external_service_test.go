package service

import (
	"context"
	"testing"
	"time"

	"forgeline/internal/model"
	"forgeline/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPartner(t *testing.T, db *gorm.DB, name string) *model.ExternalPartner {
	t.Helper()
	p := &model.ExternalPartner{Name: name, Process: "zinc plating", City: "Pune"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestCreatePartnerRejectsDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()

	_, err := svc.CreatePartner(ctx, uuid.NewString(), CreatePartnerRequest{Name: "Apex Platers"})
	require.NoError(t, err)

	_, err = svc.CreatePartner(ctx, uuid.NewString(), CreatePartnerRequest{Name: "Apex Platers"})
	assert.Equal(t, apperr.CodeDuplicateReference, apperr.CodeOf(err))
}

func TestSendOutBooksQuantities(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.Stage = model.BatchStageProduction
		b.QtyProduced = 300
	})
	partner := seedPartner(t, db, "Apex Platers")

	movement, err := svc.SendOut(ctx, userID, SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        partner.ID.String(),
		ProcessStep:      "zinc plating",
		Qty:              200,
		ExpectedReturnAt: time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementStatusSent, movement.Status)
	assert.Equal(t, 200, movement.Outstanding)
	assert.Equal(t, "Apex Platers", movement.PartnerName)

	got := reloadBatch(t, db, batch.ID)
	assert.Equal(t, 200, got.QtySentExternal)
	assert.Equal(t, model.LocationExternalPartner, got.Location)
	assert.Equal(t, model.BatchStageExternal, got.Stage)
	assert.Equal(t, 200, reloadWorkOrder(t, db, wo.ID).QtyExternalWIP)
}

func TestSendOutExceedsOnHand(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.QtyProduced = 100
	})
	partner := seedPartner(t, db, "Apex Platers")

	_, err := svc.SendOut(context.Background(), uuid.NewString(), SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        partner.ID.String(),
		ProcessStep:      "plating",
		Qty:              150,
		ExpectedReturnAt: time.Now().Add(24 * time.Hour),
	})
	assert.Equal(t, apperr.CodeExceedsAvailable, apperr.CodeOf(err))
}

// Scenario: 200 pcs sent; 150 return plus 20 partner-rejected leaves 30
// outstanding. A further return of 40 overshoots and must be refused.
func TestReceiveReturnReconciliation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.QtyProduced = 300
	})
	require.NoError(t, db.Model(wo).Update("qty_produced", 300).Error)
	partner := seedPartner(t, db, "Apex Platers")

	movement, err := svc.SendOut(ctx, userID, SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        partner.ID.String(),
		ProcessStep:      "plating",
		Qty:              200,
		ExpectedReturnAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	got, err := svc.ReceiveReturn(ctx, userID, ReceiveReturnRequest{
		MovementID:  movement.ID,
		QtyReturned: 150,
		QtyRejected: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementStatusPartiallyReturned, got.Status)
	assert.Equal(t, 30, got.Outstanding)

	gotBatch := reloadBatch(t, db, batch.ID)
	assert.Equal(t, 30, gotBatch.QtySentExternal)
	assert.Equal(t, 20, gotBatch.QtyRejected)
	assert.Equal(t, model.LocationExternalPartner, gotBatch.Location)

	_, err = svc.ReceiveReturn(ctx, userID, ReceiveReturnRequest{
		MovementID:  movement.ID,
		QtyReturned: 40,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeOverReturn, apperr.CodeOf(err))

	// Closing the remaining 30 brings the batch home.
	got, err = svc.ReceiveReturn(ctx, userID, ReceiveReturnRequest{
		MovementID:  movement.ID,
		QtyReturned: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovementStatusReturned, got.Status)
	assert.Equal(t, 0, got.Outstanding)
	assert.Equal(t, model.LocationFactory, reloadBatch(t, db, batch.ID).Location)

	gotWO := reloadWorkOrder(t, db, wo.ID)
	assert.Equal(t, 0, gotWO.QtyExternalWIP)
	assert.Equal(t, 20, gotWO.QtyRejected)
}

func TestReceiveReturnRejectsNegative(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})

	_, err := svc.ReceiveReturn(context.Background(), uuid.NewString(), ReceiveReturnRequest{
		MovementID:  uuid.NewString(),
		QtyReturned: -10,
	})
	assert.Equal(t, apperr.CodeNegativeQuantity, apperr.CodeOf(err))
}

// A forward seals the original movement and carries its outstanding quantity
// to a successor at the next partner; the batch never passes the factory.
func TestForward(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) {
		b.QtyProduced = 300
	})
	plater := seedPartner(t, db, "Apex Platers")
	heatTreater := seedPartner(t, db, "Vulcan Heat Treatment")

	movement, err := svc.SendOut(ctx, userID, SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        plater.ID.String(),
		ProcessStep:      "plating",
		Qty:              120,
		ExpectedReturnAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	successor, err := svc.Forward(ctx, userID, ForwardRequest{
		MovementID:       movement.ID,
		NextPartnerID:    heatTreater.ID.String(),
		ProcessStep:      "tempering",
		ExpectedReturnAt: time.Now().Add(10 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 120, successor.QtySent)
	assert.Equal(t, "Vulcan Heat Treatment", successor.PartnerName)

	movements, err := svc.ListMovements(ctx, batch.ID.String())
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, model.MovementStatusForwarded, movements[0].Status)
	assert.Equal(t, 0, movements[0].Outstanding)
	require.NotNil(t, movements[0].ForwardedToID)
	assert.Equal(t, successor.ID, *movements[0].ForwardedToID)

	// Nothing can return on the sealed movement anymore.
	_, err = svc.ReceiveReturn(ctx, userID, ReceiveReturnRequest{
		MovementID:  movement.ID,
		QtyReturned: 10,
	})
	assert.Equal(t, apperr.CodeOverReturn, apperr.CodeOf(err))

	// The batch still counts 120 outstanding overall.
	assert.Equal(t, 120, reloadBatch(t, db, batch.ID).QtySentExternal)
}

func TestForwardToSamePartnerRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 100, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) { b.QtyProduced = 100 })
	partner := seedPartner(t, db, "Apex Platers")

	movement, err := svc.SendOut(ctx, userID, SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        partner.ID.String(),
		ProcessStep:      "plating",
		Qty:              50,
		ExpectedReturnAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.Forward(ctx, userID, ForwardRequest{
		MovementID:       movement.ID,
		NextPartnerID:    partner.ID.String(),
		ProcessStep:      "replating",
		ExpectedReturnAt: time.Now().Add(48 * time.Hour),
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListOverdue(t *testing.T) {
	db := setupTestDB(t)
	svc := NewExternalService(db, noopNotifier{})
	ctx := context.Background()
	userID := uuid.NewString()
	wo := seedWorkOrder(t, db, 1000, model.WorkOrderStatusInProgress)
	batch := seedBatch(t, db, wo, func(b *model.ProductionBatch) { b.QtyProduced = 300 })
	partner := seedPartner(t, db, "Apex Platers")

	due := time.Now().Add(24 * time.Hour)
	movement, err := svc.SendOut(ctx, userID, SendOutRequest{
		BatchID:          batch.ID.String(),
		PartnerID:        partner.ID.String(),
		ProcessStep:      "plating",
		Qty:              100,
		ExpectedReturnAt: due,
	})
	require.NoError(t, err)

	overdue, err := svc.ListOverdue(ctx, due.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = svc.ListOverdue(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, movement.ID, overdue[0].ID)

	// Fully returned movements drop off the overdue list.
	_, err = svc.ReceiveReturn(ctx, userID, ReceiveReturnRequest{MovementID: movement.ID, QtyReturned: 100})
	require.NoError(t, err)
	overdue, err = svc.ListOverdue(ctx, due.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, overdue)
}
