// Package memory holds mutex-guarded in-memory repositories. They honour the
// same contracts as the GORM repositories and back tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
)

// Store is the shared state behind every repository view
type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	seq          map[string]uint
	drugs        map[uint]domain.Drug
	locations    map[uint]domain.Location
	lots         map[uint]domain.Lot
	units        map[uint]domain.Unit
	discarded    map[uint]bool
	transactions []domain.Transaction
}

func NewStore() *Store {
	return &Store{
		now:       time.Now,
		seq:       make(map[string]uint),
		drugs:     make(map[uint]domain.Drug),
		locations: make(map[uint]domain.Location),
		lots:      make(map[uint]domain.Lot),
		units:     make(map[uint]domain.Unit),
		discarded: make(map[uint]bool),
	}
}

func (s *Store) nextID(kind string) uint {
	s.seq[kind]++
	return s.seq[kind]
}

func (s *Store) Units() *UnitRepository               { return &UnitRepository{s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s} }
func (s *Store) Lots() *LotRepository                 { return &LotRepository{s} }
func (s *Store) Locations() *LocationRepository       { return &LocationRepository{s} }
func (s *Store) Drugs() *DrugRepository               { return &DrugRepository{s} }

type UnitRepository struct{ s *Store }

func (r *UnitRepository) Create(_ context.Context, unit *domain.Unit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	unit.ID = r.s.nextID("unit")
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now
	r.s.units[unit.ID] = *unit
	return nil
}

// get returns the live unit; the caller holds the lock
func (r *UnitRepository) get(clinicID, id uint) (domain.Unit, error) {
	u, ok := r.s.units[id]
	if !ok || u.ClinicID != clinicID || r.s.discarded[id] {
		return domain.Unit{}, domain.ErrUnitNotFound
	}
	return u, nil
}

func (r *UnitRepository) FindByID(_ context.Context, clinicID, id uint) (*domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.get(clinicID, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UnitRepository) ListAvailable(_ context.Context, clinicID uint, drugIDs []uint) ([]domain.Unit, error) {
	wanted := make(map[uint]bool, len(drugIDs))
	for _, id := range drugIDs {
		wanted[id] = true
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Unit
	for id, u := range r.s.units {
		if r.s.discarded[id] || u.ClinicID != clinicID || !wanted[u.DrugID] || u.AvailableQuantity <= 0 {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UnitRepository) SumTotalByLot(_ context.Context, lotID uint) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for id, u := range r.s.units {
		if u.LotID == lotID && !r.s.discarded[id] {
			total += u.TotalQuantity
		}
	}
	return total, nil
}

func (r *UnitRepository) TryDecrement(_ context.Context, clinicID, id uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Invalid("decrement amount must be positive, got %d", amount)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.get(clinicID, id)
	if err != nil {
		return 0, err
	}
	if u.AvailableQuantity < amount {
		return 0, &domain.InsufficientQuantityError{UnitID: id, Requested: amount, Available: u.AvailableQuantity}
	}
	u.AvailableQuantity -= amount
	u.UpdatedAt = r.s.now()
	r.s.units[id] = u
	return u.AvailableQuantity, nil
}

func (r *UnitRepository) Drain(_ context.Context, clinicID, id uint) (*domain.Unit, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.get(clinicID, id)
	if err != nil {
		return nil, 0, err
	}
	drained := u.AvailableQuantity
	if drained > 0 {
		u.AvailableQuantity = 0
		u.UpdatedAt = r.s.now()
		r.s.units[id] = u
	}
	return &u, drained, nil
}

func (r *UnitRepository) Increment(_ context.Context, clinicID, id uint, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.Invalid("increment amount must be positive, got %d", amount)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.get(clinicID, id)
	if err != nil {
		return 0, err
	}
	if u.AvailableQuantity+amount > u.TotalQuantity {
		return 0, fmt.Errorf("%w: incrementing unit %d by %d would exceed its total %d",
			domain.ErrConcurrentModification, id, amount, u.TotalQuantity)
	}
	u.AvailableQuantity += amount
	u.UpdatedAt = r.s.now()
	r.s.units[id] = u
	return u.AvailableQuantity, nil
}

func (r *UnitRepository) SetQuantities(_ context.Context, clinicID, id uint, expected domain.UnitQuantities, correction domain.UnitCorrection) (*domain.Unit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, err := r.get(clinicID, id)
	if err != nil {
		return nil, err
	}
	if u.Quantities() != expected {
		return nil, fmt.Errorf("%w: unit %d quantities changed to %d/%d",
			domain.ErrConcurrentModification, id, u.AvailableQuantity, u.TotalQuantity)
	}
	u = correction.Apply(u)
	u.UpdatedAt = r.s.now()
	r.s.units[id] = u
	return &u, nil
}

func (r *UnitRepository) Discard(_ context.Context, clinicID, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.get(clinicID, id); err != nil {
		return err
	}
	r.s.discarded[id] = true
	return nil
}

type TransactionRepository struct{ s *Store }

func (r *TransactionRepository) Append(_ context.Context, txn *domain.Transaction) error {
	if txn.ID != 0 {
		return domain.Invalid("ledger entries are immutable; entry %d already written", txn.ID)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn.ID = r.s.nextID("transaction")
	txn.CreatedAt = r.s.now()
	r.s.transactions = append(r.s.transactions, *txn)
	return nil
}

func (r *TransactionRepository) ListForUnit(_ context.Context, clinicID, unitID uint, limit, offset int) ([]domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Transaction
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		t := r.s.transactions[i]
		if t.ClinicID == clinicID && t.UnitID == unitID {
			out = append(out, t)
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type LotRepository struct{ s *Store }

func (r *LotRepository) Create(_ context.Context, lot *domain.Lot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	lot.ID = r.s.nextID("lot")
	lot.CreatedAt = now
	lot.UpdatedAt = now
	r.s.lots[lot.ID] = *lot
	return nil
}

func (r *LotRepository) FindByID(_ context.Context, clinicID, id uint) (*domain.Lot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lot, ok := r.s.lots[id]
	if !ok || lot.ClinicID != clinicID {
		return nil, domain.ErrLotNotFound
	}
	return &lot, nil
}

type LocationRepository struct{ s *Store }

func (r *LocationRepository) Create(_ context.Context, location *domain.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	location.ID = r.s.nextID("location")
	location.CreatedAt = now
	location.UpdatedAt = now
	r.s.locations[location.ID] = *location
	return nil
}

func (r *LocationRepository) FindByID(_ context.Context, clinicID, id uint) (*domain.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	location, ok := r.s.locations[id]
	if !ok || location.ClinicID != clinicID {
		return nil, domain.ErrLocationNotFound
	}
	return &location, nil
}

type DrugRepository struct{ s *Store }

func (r *DrugRepository) Create(_ context.Context, drug *domain.Drug) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if drug.NDC != "" {
		for _, d := range r.s.drugs {
			if d.NDC == drug.NDC {
				return fmt.Errorf("failed to create drug: duplicate ndc %s", drug.NDC)
			}
		}
	}
	now := r.s.now()
	drug.ID = r.s.nextID("drug")
	drug.CreatedAt = now
	drug.UpdatedAt = now
	r.s.drugs[drug.ID] = *drug
	return nil
}

func (r *DrugRepository) FindByID(_ context.Context, id uint) (*domain.Drug, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	drug, ok := r.s.drugs[id]
	if !ok {
		return nil, domain.ErrDrugNotFound
	}
	return &drug, nil
}

func (r *DrugRepository) FindByNDC(_ context.Context, ndc string) (*domain.Drug, error) {
	ndc = strings.TrimSpace(ndc)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.drugs {
		if ndc != "" && d.NDC == ndc {
			return &d, nil
		}
	}
	return nil, domain.ErrDrugNotFound
}

func (r *DrugRepository) FindMatching(_ context.Context, matcher domain.DrugMatcher) ([]domain.Drug, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Drug
	for _, d := range r.s.drugs {
		if matcher.Matches(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
