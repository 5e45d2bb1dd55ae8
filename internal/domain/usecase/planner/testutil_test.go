package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/entity"
	errs "github.com/Giftbit/internal-rothschild-sub003/internal/domain/error"
	"github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/persistence"
	procport "github.com/Giftbit/internal-rothschild-sub003/internal/domain/port/processor"
	rulesadapter "github.com/Giftbit/internal-rothschild-sub003/internal/infrastructure/adapter/rules"
)

// In-memory collaborators for engine tests. The fakes honor the port error
// contracts so the engine under test cannot tell them from the real adapters.

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]any) {}
func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}
func (nopLogger) Flush() error                 { return nil }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeValueRepo struct {
	values map[string]*entity.Value
}

func newFakeValueRepo() *fakeValueRepo {
	return &fakeValueRepo{values: map[string]*entity.Value{}}
}

// put seeds or overwrites a Value directly, bypassing Create's collision checks.
func (r *fakeValueRepo) put(v *entity.Value) {
	r.values[v.ID] = cloneValue(v)
}

func (r *fakeValueRepo) GetByID(_ context.Context, id string) (*entity.Value, error) {
	v, ok := r.values[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrValueNotFound, id)
	}
	return cloneValue(v), nil
}

func (r *fakeValueRepo) GetForUpdate(ctx context.Context, id string) (*entity.Value, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeValueRepo) GetByCode(_ context.Context, codeHashed string) (*entity.Value, error) {
	for _, v := range r.values {
		if v.CodeHashed == codeHashed {
			return cloneValue(v), nil
		}
	}
	return nil, fmt.Errorf("%w: no value with that code", errs.ErrValueNotFound)
}

func (r *fakeValueRepo) ListByCurrencyAndContact(_ context.Context, currency, contactID string) ([]*entity.Value, error) {
	var out []*entity.Value
	for _, v := range r.values {
		if v.Currency == currency && v.ContactID == contactID {
			out = append(out, cloneValue(v))
		}
	}
	return out, nil
}

func (r *fakeValueRepo) Create(_ context.Context, value *entity.Value) error {
	if _, ok := r.values[value.ID]; ok {
		if value.AttachedFromValueID != "" {
			return fmt.Errorf("%w: %s", errs.ErrValueAlreadyAttached, value.ID)
		}
		return fmt.Errorf("%w: value id %s", errs.ErrConflict, value.ID)
	}
	if value.CodeHashed != "" {
		for _, v := range r.values {
			if v.CodeHashed == value.CodeHashed {
				return errs.ErrValueCodeExists
			}
		}
	}
	r.values[value.ID] = cloneValue(value)
	return nil
}

func (r *fakeValueRepo) Update(_ context.Context, value *entity.Value) error {
	if _, ok := r.values[value.ID]; !ok {
		return fmt.Errorf("%w: %s", errs.ErrValueNotFound, value.ID)
	}
	r.values[value.ID] = cloneValue(value)
	return nil
}

func cloneValue(v *entity.Value) *entity.Value {
	cp := *v
	cp.Balance = cloneInt64(v.Balance)
	cp.UsesRemaining = cloneInt64(v.UsesRemaining)
	if v.DiscountSellerLiability != nil {
		d := *v.DiscountSellerLiability
		cp.DiscountSellerLiability = &d
	}
	if v.RedemptionRule != nil {
		rr := *v.RedemptionRule
		cp.RedemptionRule = &rr
	}
	if v.BalanceRule != nil {
		br := *v.BalanceRule
		cp.BalanceRule = &br
	}
	if v.StartDate != nil {
		t := *v.StartDate
		cp.StartDate = &t
	}
	if v.EndDate != nil {
		t := *v.EndDate
		cp.EndDate = &t
	}
	if v.GenericCodeOptions != nil {
		opts := entity.GenericCodeOptions{
			PerContactBalance: cloneInt64(v.GenericCodeOptions.PerContactBalance),
			PerContactUses:    cloneInt64(v.GenericCodeOptions.PerContactUses),
		}
		cp.GenericCodeOptions = &opts
	}
	return &cp
}

type fakeTxRepo struct {
	transactions map[string]*entity.Transaction
	steps        map[string][]entity.Step
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{
		transactions: map[string]*entity.Transaction{},
		steps:        map[string][]entity.Step{},
	}
}

func (r *fakeTxRepo) Create(_ context.Context, transaction *entity.Transaction) error {
	if _, ok := r.transactions[transaction.ID]; ok {
		return fmt.Errorf("%w: %s", errs.ErrTransactionExists, transaction.ID)
	}
	cp := *transaction
	cp.Steps = nil
	r.transactions[transaction.ID] = &cp
	return nil
}

func (r *fakeTxRepo) InsertStep(_ context.Context, transactionID string, _ int, step entity.Step) error {
	if _, ok := r.transactions[transactionID]; !ok {
		return fmt.Errorf("%w: %s", errs.ErrTransactionNotFound, transactionID)
	}
	r.steps[transactionID] = append(r.steps[transactionID], step)
	return nil
}

func (r *fakeTxRepo) GetByID(_ context.Context, id string) (*entity.Transaction, error) {
	t, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrTransactionNotFound, id)
	}
	cp := *t
	cp.Steps = append([]entity.Step{}, r.steps[id]...)
	return &cp, nil
}

func (r *fakeTxRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.transactions[id]
	return ok, nil
}

func (r *fakeTxRepo) SetNextTransaction(_ context.Context, id, nextID string) error {
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrTransactionNotFound, id)
	}
	if t.NextTransactionID != "" {
		return fmt.Errorf("%w: transaction %s already has a successor", errs.ErrConflict, id)
	}
	t.NextTransactionID = nextID
	return nil
}

// fakeUOW snapshots both stores on Begin and restores them on Rollback, so
// the executor's all-or-nothing database behavior holds in tests too.
type fakeUOW struct {
	values *fakeValueRepo
	txs    *fakeTxRepo

	snapValues map[string]*entity.Value
	snapTxs    map[string]*entity.Transaction
	snapSteps  map[string][]entity.Step
	inTx       bool

	commits   int
	rollbacks int
}

func newFakeUOW() *fakeUOW {
	return &fakeUOW{values: newFakeValueRepo(), txs: newFakeTxRepo()}
}

func (u *fakeUOW) Begin(ctx context.Context) (context.Context, error) {
	u.snapValues = map[string]*entity.Value{}
	for id, v := range u.values.values {
		u.snapValues[id] = cloneValue(v)
	}
	u.snapTxs = map[string]*entity.Transaction{}
	for id, t := range u.txs.transactions {
		cp := *t
		u.snapTxs[id] = &cp
	}
	u.snapSteps = map[string][]entity.Step{}
	for id, steps := range u.txs.steps {
		u.snapSteps[id] = append([]entity.Step{}, steps...)
	}
	u.inTx = true
	return ctx, nil
}

func (u *fakeUOW) Commit(context.Context) error {
	u.inTx = false
	u.commits++
	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	if !u.inTx {
		return nil
	}
	u.values.values = u.snapValues
	u.txs.transactions = u.snapTxs
	u.txs.steps = u.snapSteps
	u.inTx = false
	u.rollbacks++
	return nil
}

func (u *fakeUOW) GetValueRepository(context.Context) persistence.ValueRepository {
	return u.values
}

func (u *fakeUOW) GetTransactionRepository(context.Context) persistence.TransactionRepository {
	return u.txs
}

type fakeProcessor struct {
	charges  []procport.ChargeRequest
	captures []string
	refunds  []string

	chargeErr  error
	captureErr error
	refundErr  error

	seq int
}

func (p *fakeProcessor) Charge(_ context.Context, req procport.ChargeRequest) (*procport.ChargeResult, error) {
	if p.chargeErr != nil {
		return nil, p.chargeErr
	}
	p.charges = append(p.charges, req)
	p.seq++
	return &procport.ChargeResult{
		ChargeID: fmt.Sprintf("ch_%d", p.seq),
		Amount:   req.Amount,
		Captured: req.Capture,
	}, nil
}

func (p *fakeProcessor) Capture(_ context.Context, chargeID string, amount int64) (*procport.CaptureResult, error) {
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	p.captures = append(p.captures, chargeID)
	return &procport.CaptureResult{ChargeID: chargeID, Amount: amount}, nil
}

func (p *fakeProcessor) Refund(_ context.Context, chargeID, _ string) (*procport.RefundResult, error) {
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.refunds = append(p.refunds, chargeID)
	return &procport.RefundResult{RefundID: "re_" + chargeID, ChargeID: chargeID}, nil
}

// harness wires a full engine against the in-memory fakes and the real rule
// evaluator.
type harness struct {
	uow   *fakeUOW
	proc  *fakeProcessor
	clock *fakeClock
	svc   *Service
}

func newHarness() *harness {
	uow := newFakeUOW()
	proc := &fakeProcessor{}
	clock := &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	svc := NewService(uow, proc, rulesadapter.New(), clock, nopLogger{}, NopMetrics{}, 0, 0)
	return &harness{uow: uow, proc: proc, clock: clock, svc: svc}
}

// seedValue stores an active Value. Use seedRawValue to control Active.
func (h *harness) seedValue(v *entity.Value) {
	v.Active = true
	h.seedRawValue(v)
}

func (h *harness) seedRawValue(v *entity.Value) {
	if v.Currency == "" {
		v.Currency = "USD"
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = h.clock.now
	}
	h.uow.values.put(v)
}

func (h *harness) balanceOf(id string) int64 {
	v, ok := h.uow.values.values[id]
	if !ok || v.Balance == nil {
		return -1
	}
	return *v.Balance
}

func int64p(v int64) *int64 { return &v }

func timep(t time.Time) *time.Time { return &t }
