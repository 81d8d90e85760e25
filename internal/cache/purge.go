package cache

import (
	"context"
	"fmt"
)

// PurgeSource drops every cached entry of sourceID in all namespaces and
// returns how many were removed.
func PurgeSource(ctx context.Context, p Purger, sourceID string) (int, error) {
	total := 0
	for _, ns := range Namespaces() {
		n, err := p.Purge(ctx, Prefix(ns, sourceID))
		total += n
		if err != nil {
			return total, fmt.Errorf("purge %s: %w", ns, err)
		}
	}
	return total, nil
}
