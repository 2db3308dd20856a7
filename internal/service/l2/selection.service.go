package l2_service

import (
	"context"
	"fmt"
	"math"
	"rankbacktest/internal/domain"
	"rankbacktest/internal/logger"
	l1_service "rankbacktest/internal/service/l1"
	"rankbacktest/internal/util"
	"sort"
)

// SelectionService slices each date's ranking into bucket baskets.
type SelectionService interface {
	Select(ctx context.Context, in SelectInput) (*SelectResult, error)
}

type SelectInput struct {
	Scores   *domain.Frame
	Universe l1_service.UniverseService
	Buckets  []domain.Bucket
	// basket size for LONG and SHORT buckets
	NumLongs  int
	NumGroups int
	// by default the lowest score ranks first
	HigherIsBetter bool
}

type SelectResult struct {
	// keyed by bucket name
	Tables map[string]domain.SelectionTable
	// ranked tradable universe per date
	Ranked domain.SelectionTable
}

type selectionServiceHandler struct{}

func NewSelectionService() SelectionService {
	return selectionServiceHandler{}
}

// NewBuckets lists the replays a mode runs.
func NewBuckets(mode util.Mode, numGroups int) ([]domain.Bucket, error) {
	switch mode {
	case util.Mode_LongShort:
		return []domain.Bucket{
			{Name: string(domain.BucketKind_Long), Kind: domain.BucketKind_Long},
			{Name: string(domain.BucketKind_Short), Kind: domain.BucketKind_Short},
		}, nil
	case util.Mode_Groups:
		if numGroups <= 0 {
			return nil, fmt.Errorf("%w: numGroups must be > 0, got %d", domain.ErrConfiguration, numGroups)
		}
		out := []domain.Bucket{}
		for g := 0; g < numGroups; g++ {
			out = append(out, domain.Bucket{
				Name:  fmt.Sprintf("G%d", g+1),
				Kind:  domain.BucketKind_Group,
				Group: g,
			})
		}
		return out, nil
	case util.Mode_Optimizer:
		return []domain.Bucket{
			{Name: string(domain.BucketKind_Optimizer), Kind: domain.BucketKind_Optimizer},
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrConfiguration, mode)
}

// rank orders the tradable symbols by score, dropping unscored ones.
// Equal scores keep universe order.
func rank(scores map[string]float64, tradable []string, higherIsBetter bool) []string {
	out := []string{}
	for _, symbol := range tradable {
		if v, ok := scores[symbol]; ok && !math.IsNaN(v) {
			out = append(out, symbol)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if higherIsBetter {
			return scores[out[i]] > scores[out[j]]
		}
		return scores[out[i]] < scores[out[j]]
	})
	return out
}

func (h selectionServiceHandler) Select(ctx context.Context, in SelectInput) (*SelectResult, error) {
	if in.Scores == nil || in.Universe == nil {
		return nil, fmt.Errorf("%w: selection requires scores and a universe", domain.ErrConfiguration)
	}
	log := logger.FromContext(ctx)

	result := &SelectResult{
		Tables: map[string]domain.SelectionTable{},
		Ranked: domain.SelectionTable{},
	}
	for _, b := range in.Buckets {
		result.Tables[b.Name] = domain.SelectionTable{}
	}

	for _, date := range in.Scores.Dates {
		tradable, err := in.Universe.Tradable(date)
		if err != nil {
			return nil, fmt.Errorf("failed to get tradable universe on %s: %w", util.FormatDate(date), err)
		}
		scores, err := in.Scores.RowMap(date)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfiguration, err.Error())
		}
		ranked := rank(scores, tradable, in.HigherIsBetter)
		result.Ranked[date] = ranked

		for _, b := range in.Buckets {
			basket, err := sliceBasket(b, ranked, in.NumLongs, in.NumGroups)
			if err != nil {
				return nil, fmt.Errorf("failed to select %s basket on %s: %w", b.Name, util.FormatDate(date), err)
			}
			result.Tables[b.Name][date] = basket
		}
	}

	log.Debugw("built selection tables", "buckets", len(in.Buckets), "dates", len(in.Scores.Dates))

	return result, nil
}

func sliceBasket(b domain.Bucket, ranked []string, numLongs, numGroups int) ([]string, error) {
	n := len(ranked)
	switch b.Kind {
	case domain.BucketKind_Long, domain.BucketKind_Short:
		if numLongs <= 0 {
			return nil, fmt.Errorf("%w: basket size must be > 0, got %d", domain.ErrConfiguration, numLongs)
		}
		if n < numLongs {
			return nil, fmt.Errorf("%w: only %d ranked instruments, need %d", domain.ErrConfiguration, n, numLongs)
		}
		if b.Kind == domain.BucketKind_Long {
			return append([]string{}, ranked[:numLongs]...), nil
		}
		return append([]string{}, ranked[n-numLongs:]...), nil
	case domain.BucketKind_Group:
		if numGroups <= 0 || b.Group < 0 || b.Group >= numGroups {
			return nil, fmt.Errorf("%w: group %d out of range for %d groups", domain.ErrConfiguration, b.Group, numGroups)
		}
		// the lowest ranked remainder is left out
		size := n / numGroups
		if size == 0 {
			return nil, fmt.Errorf("%w: only %d ranked instruments for %d groups", domain.ErrConfiguration, n, numGroups)
		}
		return append([]string{}, ranked[b.Group*size:(b.Group+1)*size]...), nil
	case domain.BucketKind_Optimizer:
		if n == 0 {
			return nil, fmt.Errorf("%w: no ranked instruments", domain.ErrConfiguration)
		}
		return append([]string{}, ranked...), nil
	}
	return nil, fmt.Errorf("%w: unknown bucket kind %q", domain.ErrConfiguration, b.Kind)
}
