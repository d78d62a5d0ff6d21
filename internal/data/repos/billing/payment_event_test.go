package billing

import (
	"context"
	"testing"

	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
)

func TestPaymentEventRecordIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewPaymentEventRepo(db, testutil.Logger(t))
	ctx := context.Background()

	fresh, err := repo.Record(ctx, tx, &types.PaymentEvent{StripeEventID: "evt_1", Type: "checkout.session.completed"})
	if err != nil || !fresh {
		t.Fatalf("first Record: fresh=%v err=%v", fresh, err)
	}
	fresh, err = repo.Record(ctx, tx, &types.PaymentEvent{StripeEventID: "evt_1", Type: "checkout.session.completed"})
	if err != nil || fresh {
		t.Fatalf("replayed Record: fresh=%v err=%v", fresh, err)
	}
}
