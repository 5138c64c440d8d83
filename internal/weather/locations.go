package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSearchCount = 10

// SearchLocations returns known locations matching query, falling back to the
// geocoder. Geocoded results are saved with fresh ids.
func (s *Service) SearchLocations(ctx context.Context, query string, count int) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Location{}, nil
	}
	if count <= 0 {
		count = defaultSearchCount
	}

	known, err := s.locations.FindByName(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "find location", Err: err}
	}
	if len(known) > 0 {
		if len(known) > count {
			known = known[:count]
		}
		return known, nil
	}

	found, err := s.provider.Search(ctx, query, count)
	if err != nil {
		return nil, &ProviderError{Provider: s.provider.Name(), Err: err}
	}
	saved := make([]Location, 0, len(found))
	for _, loc := range found {
		loc.ID = uuid.NewString()
		if err := s.locations.Save(ctx, loc); err != nil {
			return nil, &StoreError{Op: "save location", Err: err}
		}
		saved = append(saved, loc)
	}
	return saved, nil
}

// ResolveLocations maps place names to locations, taking the first match for
// each name. Names without a match or whose geocoding fails are skipped; only
// store failures are returned.
func (s *Service) ResolveLocations(ctx context.Context, names []string) ([]Location, error) {
	out := make([]Location, 0, len(names))
	for _, name := range names {
		found, err := s.SearchLocations(ctx, name, 1)
		var perr *ProviderError
		if errors.As(err, &perr) {
			s.logger.Warn("geocoding failed; location not tracked",
				zap.String("name", name),
				zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", name, err)
		}
		if len(found) == 0 {
			s.logger.Warn("no location matches name", zap.String("name", name))
			continue
		}
		out = append(out, found[0])
	}
	return out, nil
}
