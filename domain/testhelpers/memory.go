package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
)

// In-memory repository fakes. Service unit tests drive whole deposit /
// borrow / liquidate sequences against these instead of scripting every
// repository call through a mock.

// MemoryPoolRepository is an in-memory PoolRepository.
type MemoryPoolRepository struct {
	State  entities.PoolState
	Shares map[string]int64
}

// NewMemoryPoolRepository returns an empty pool at index 1.0.
func NewMemoryPoolRepository() *MemoryPoolRepository {
	return &MemoryPoolRepository{
		State:  entities.PoolState{Index: entities.IndexScale},
		Shares: make(map[string]int64),
	}
}

func (r *MemoryPoolRepository) GetState(ctx context.Context) (*entities.PoolState, error) {
	state := r.State
	return &state, nil
}

func (r *MemoryPoolRepository) SaveState(ctx context.Context, state *entities.PoolState) error {
	r.State = *state
	return nil
}

func (r *MemoryPoolRepository) GetShares(ctx context.Context, account string) (int64, error) {
	return r.Shares[account], nil
}

func (r *MemoryPoolRepository) SetShares(ctx context.Context, account string, shares int64) error {
	r.Shares[account] = shares
	return nil
}

// MemoryBillRepository is an in-memory BillRepository with sequential IDs
// starting at 1.
type MemoryBillRepository struct {
	Bills  map[int64]*entities.Bill
	nextID int64
}

func NewMemoryBillRepository() *MemoryBillRepository {
	return &MemoryBillRepository{Bills: make(map[int64]*entities.Bill), nextID: 1}
}

func (r *MemoryBillRepository) Create(ctx context.Context, bill *entities.Bill) error {
	bill.ID = r.nextID
	r.nextID++
	stored := *bill
	r.Bills[bill.ID] = &stored
	return nil
}

func (r *MemoryBillRepository) GetByID(ctx context.Context, id int64) (*entities.Bill, error) {
	bill, ok := r.Bills[id]
	if !ok {
		return nil, nil
	}
	copy := *bill
	return &copy, nil
}

func (r *MemoryBillRepository) Update(ctx context.Context, bill *entities.Bill) error {
	if _, ok := r.Bills[bill.ID]; !ok {
		return fmt.Errorf("bill %d not found", bill.ID)
	}
	stored := *bill
	r.Bills[bill.ID] = &stored
	return nil
}

func (r *MemoryBillRepository) GetOpenByUser(ctx context.Context, user string) ([]*entities.Bill, error) {
	var out []*entities.Bill
	for _, bill := range r.Bills {
		if bill.User == user && bill.IsOpen() {
			copy := *bill
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryBillRepository) GetCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error) {
	var out []*entities.Bill
	for _, bill := range r.Bills {
		if bill.Status == entities.BillStatusCreated && bill.CreatedAt.Before(cutoff) {
			copy := *bill
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryBillRepository) GetPaidBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error) {
	var out []*entities.Bill
	for _, bill := range r.Bills {
		if bill.Status == entities.BillStatusPaid && bill.PaidAt != nil && bill.PaidAt.Before(cutoff) {
			copy := *bill
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryMerchantRepository is an in-memory MerchantRepository.
type MemoryMerchantRepository struct {
	Merchants map[string]*entities.Merchant
}

func NewMemoryMerchantRepository() *MemoryMerchantRepository {
	return &MemoryMerchantRepository{Merchants: make(map[string]*entities.Merchant)}
}

func (r *MemoryMerchantRepository) Create(ctx context.Context, merchant *entities.Merchant) error {
	if _, ok := r.Merchants[merchant.Account]; ok {
		return fmt.Errorf("merchant %s already exists", merchant.Account)
	}
	stored := *merchant
	r.Merchants[merchant.Account] = &stored
	return nil
}

func (r *MemoryMerchantRepository) GetByAccount(ctx context.Context, account string) (*entities.Merchant, error) {
	merchant, ok := r.Merchants[account]
	if !ok {
		return nil, nil
	}
	copy := *merchant
	return &copy, nil
}

func (r *MemoryMerchantRepository) Update(ctx context.Context, merchant *entities.Merchant) error {
	if _, ok := r.Merchants[merchant.Account]; !ok {
		return fmt.Errorf("merchant %s not found", merchant.Account)
	}
	stored := *merchant
	r.Merchants[merchant.Account] = &stored
	return nil
}

// MemoryConfigRepository is an in-memory ConfigRepository.
type MemoryConfigRepository struct {
	Config *entities.ProtocolConfig
}

func NewMemoryConfigRepository() *MemoryConfigRepository {
	return &MemoryConfigRepository{}
}

func (r *MemoryConfigRepository) Get(ctx context.Context) (*entities.ProtocolConfig, error) {
	if r.Config == nil {
		return nil, nil
	}
	copy := *r.Config
	return &copy, nil
}

func (r *MemoryConfigRepository) Set(ctx context.Context, cfg *entities.ProtocolConfig) error {
	if r.Config != nil {
		return entities.ErrAlreadyInitialized
	}
	stored := *cfg
	r.Config = &stored
	return nil
}

// MemoryAssetLedger is an in-memory settlement-asset ledger.
type MemoryAssetLedger struct {
	Balances map[string]int64
}

func NewMemoryAssetLedger() *MemoryAssetLedger {
	return &MemoryAssetLedger{Balances: make(map[string]int64)}
}

func (l *MemoryAssetLedger) Balance(ctx context.Context, account string) (int64, error) {
	return l.Balances[account], nil
}

func (l *MemoryAssetLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return entities.ErrInvalidAmount
	}
	if amount == 0 || from == to {
		return nil
	}
	if l.Balances[from] < amount {
		return fmt.Errorf("account %s has %d, needs %d: %w",
			from, l.Balances[from], amount, entities.ErrInsufficientFunds)
	}
	l.Balances[from] -= amount
	l.Balances[to] += amount
	return nil
}

func (l *MemoryAssetLedger) Mint(ctx context.Context, to string, amount int64) error {
	if amount <= 0 {
		return entities.ErrInvalidAmount
	}
	l.Balances[to] += amount
	return nil
}

// RecordingPublisher collects published events for assertions.
type RecordingPublisher struct {
	Events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) error {
	p.Events = append(p.Events, event)
	return nil
}

// ByType returns the recorded events of one type, in publish order.
func (p *RecordingPublisher) ByType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}
