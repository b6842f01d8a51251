// Package catalog resolves drug matchers to catalog ids and registers drugs
// the first time they are seen.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// Resolver implements domain.DrugResolver over the local catalog tables
type Resolver struct {
	drugs domain.DrugRepository
	cache Cache
}

// NewResolver creates a resolver; a nil cache disables caching
func NewResolver(drugs domain.DrugRepository, cache Cache) *Resolver {
	return &Resolver{drugs: drugs, cache: cache}
}

// Resolve returns the drug ids a matcher denotes. DrugID wins over NDC, NDC
// wins over the name/strength tuple.
func (r *Resolver) Resolve(ctx context.Context, m domain.DrugMatcher) ([]uint, error) {
	switch {
	case m.DrugID != 0:
		if _, err := r.drugs.FindByID(ctx, m.DrugID); err != nil {
			return nil, err
		}
		return []uint{m.DrugID}, nil

	case strings.TrimSpace(m.NDC) != "":
		drug, err := r.findByNDC(ctx, strings.TrimSpace(m.NDC))
		if err != nil {
			return nil, err
		}
		return []uint{drug}, nil

	case strings.TrimSpace(m.Name) != "":
		if strings.TrimSpace(m.StrengthUnit) == "" || !m.Strength.IsPositive() {
			return nil, domain.Invalid("medication name requires a positive strength and a strength unit")
		}
		drugs, err := r.drugs.FindMatching(ctx, m)
		if err != nil {
			return nil, err
		}
		if len(drugs) == 0 {
			return nil, fmt.Errorf("%w: %s %s%s", domain.ErrDrugNotFound, m.Name, m.Strength.String(), m.StrengthUnit)
		}
		ids := make([]uint, len(drugs))
		for i, d := range drugs {
			ids[i] = d.ID
		}
		return ids, nil
	}
	return nil, domain.Invalid("drug matcher needs a drug id, an ndc or a medication name")
}

func (r *Resolver) findByNDC(ctx context.Context, ndc string) (uint, error) {
	if r.cache != nil {
		if id, ok := r.cache.Get(ctx, ndc); ok {
			return id, nil
		}
	}
	drug, err := r.drugs.FindByNDC(ctx, ndc)
	if err != nil {
		return 0, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, ndc, drug.ID)
	}
	return drug.ID, nil
}

// Register returns the catalog entry for drug, creating it on first sight.
// Drugs with an NDC are idempotent on it; created reports whether a row was written.
func (r *Resolver) Register(ctx context.Context, drug *domain.Drug) (*domain.Drug, bool, error) {
	drug.Name = strings.TrimSpace(drug.Name)
	drug.NDC = strings.TrimSpace(drug.NDC)
	if drug.Name == "" {
		return nil, false, domain.Invalid("drug name is required")
	}
	if !drug.Strength.IsPositive() || strings.TrimSpace(drug.StrengthUnit) == "" {
		return nil, false, domain.Invalid("drug strength and strength unit are required")
	}

	if drug.NDC != "" {
		existing, err := r.drugs.FindByNDC(ctx, drug.NDC)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrDrugNotFound) {
			return nil, false, err
		}
	}

	if err := r.drugs.Create(ctx, drug); err != nil {
		// lost a race with another registration of the same NDC
		if drug.NDC != "" {
			if existing, findErr := r.drugs.FindByNDC(ctx, drug.NDC); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	if drug.NDC != "" && r.cache != nil {
		r.cache.Set(ctx, drug.NDC, drug.ID)
	}
	logger.Info(ctx).
		Uint("drug_id", drug.ID).
		Str("ndc", drug.NDC).
		Str("name", drug.Name).
		Msg("Drug registered in catalog")
	return drug, true, nil
}
