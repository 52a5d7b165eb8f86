package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/slot"
)

// SlotState is the availability of one catalog slot on a given day.
type SlotState struct {
	Slot     string
	Free     bool
	Occupied *Occupancy
}

// AvailabilityResolver computes free versus occupied slots for a provider
// and date. It is read-only and advisory: the reservation writes enforce
// the invariant, the resolver just reflects it.
type AvailabilityResolver struct {
	repo Repository
}

func NewAvailabilityResolver(repo Repository) *AvailabilityResolver {
	return &AvailabilityResolver{repo: repo}
}

// FreeSlots returns the catalog slots not occupied on the date, in grid
// order. A slot counts as occupied for display while any pending,
// confirmed or completed appointment covers it.
func (r *AvailabilityResolver) FreeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	if _, err := r.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}

	occupied, err := r.repo.OccupiedSlots(ctx, providerID, slot.Normalize(date))
	if err != nil {
		return nil, fmt.Errorf("resolve occupied slots: %w", err)
	}

	free := make([]string, 0, len(slot.Catalog))
	for _, label := range slot.Catalog {
		if _, taken := occupied[label]; !taken {
			free = append(free, label)
		}
	}
	return free, nil
}

// SlotState reports whether one slot is free and, if not, who holds it.
func (r *AvailabilityResolver) SlotState(ctx context.Context, providerID uuid.UUID, date time.Time, label string) (SlotState, error) {
	if !slot.IsValid(label) {
		return SlotState{}, &ValidationError{Field: "slot", Reason: fmt.Sprintf("%q is not a bookable slot", label)}
	}

	occupied, err := r.repo.OccupiedSlots(ctx, providerID, slot.Normalize(date))
	if err != nil {
		return SlotState{}, fmt.Errorf("resolve occupied slots: %w", err)
	}

	if occ, taken := occupied[label]; taken {
		return SlotState{Slot: label, Occupied: &occ}, nil
	}
	return SlotState{Slot: label, Free: true}, nil
}
