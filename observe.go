package wayfarer

import (
	"context"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/logging"
	"github.com/wayfarerhq/wayfarer/pkg/places"
	"github.com/wayfarerhq/wayfarer/pkg/reconcile"
	"github.com/wayfarerhq/wayfarer/pkg/remote"
)

// Observe classifies one raw upstream record by its structural shape and
// merges it into the canonical store. The raw record may come from any
// source: a provider search result, a server summary, a detailed record, or
// a locally-persisted row.
func (c *client) Observe(raw map[string]any) (*places.Place, error) {
	rec, err := reconcile.Classify(raw)
	if err != nil {
		return nil, err
	}

	merged, err := c.places.Upsert(rec)
	if err != nil {
		return nil, err
	}

	if c.durable != nil {
		c.saveQuiet(context.Background())
	}
	return merged, nil
}

// RefreshSummaries pulls the lightweight summary sweep for the given
// geographic scope and merges every record through the normal classify and
// merge path. Places outside the sweep are untouched. Returns the number of
// records applied.
func (c *client) RefreshSummaries(ctx context.Context, scope remote.Scope) (int, error) {
	if c.remote == nil {
		return 0, errors.ErrServerUnavailable
	}
	if !c.Online() {
		return 0, errors.ErrOffline
	}

	raws, err := c.remote.FetchSummaries(ctx, scope)
	if err != nil {
		return 0, err
	}

	recs := make([]places.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := reconcile.Classify(raw)
		if err != nil {
			logging.Warn().Err(err).Msg("Skipping unclassifiable record in summary sweep")
			continue
		}
		recs = append(recs, rec)
	}

	applied := c.places.BulkRefresh(recs)

	if c.durable != nil {
		c.saveQuiet(ctx)
	}
	return applied, nil
}

// FetchDetail pulls the fully-detailed record for one place and merges it.
// Detailed records are authoritative for relationship flags and reviews.
func (c *client) FetchDetail(ctx context.Context, externalID string) (*places.Place, error) {
	if c.remote == nil {
		return nil, errors.ErrServerUnavailable
	}
	if !c.Online() {
		return nil, errors.ErrOffline
	}

	raw, err := c.remote.FetchDetail(ctx, externalID)
	if err != nil {
		return nil, err
	}

	return c.Observe(raw)
}
