package runner

import (
	"context"
	"time"

	"github.com/loykin/graphdev/internal/history"
	"github.com/loykin/graphdev/internal/metrics"
	"github.com/loykin/graphdev/internal/subgraph"
)

// SpawnAndDiscover spawns commandLine like Spawn and then waits for the new
// process to serve GraphQL on a local port.
//
// Endpoints that were already listening before the spawn, and those in known,
// are never reported. When more than one new endpoint shows up the Chooser
// decides; if it fails polling goes on. After the discovery timeout the
// error has KindDiscoveryTimeout and the task stays registered, so a later
// KillTasks still cleans it up.
//
// The Chooser runs under ctx, not under the discovery timeout: an unanswered
// prompt blocks SpawnAndDiscover past the timeout until the user answers or
// ctx ends.
func (r *Runner) SpawnAndDiscover(
	ctx context.Context,
	name subgraph.Name,
	commandLine string,
	scanner EndpointScanner,
	known []subgraph.Endpoint,
	topts ...TaskOption,
) (subgraph.Endpoint, error) {
	baseline := subgraph.NewEndpointSet(known...)
	if local, err := scanner.LocalEndpoints(ctx); err != nil {
		r.logger.Warn("could not list local endpoints", "error", err)
	} else {
		baseline = baseline.Union(local)
	}

	t, err := r.spawn(ctx, name, commandLine, topts)
	if err != nil {
		return "", err
	}

	start := time.Now()
	pollCtx, cancel := context.WithTimeout(ctx, r.discoveryTimeout)
	defer cancel()
	pause := time.NewTimer(r.pollInterval)
	pause.Stop()
	defer pause.Stop()

	for {
		if ep, outcome, ok := r.pollOnce(ctx, pollCtx, scanner, baseline); ok {
			metrics.ObserveDiscovery(outcome, time.Since(start).Seconds())
			r.logger.Info("found GraphQL endpoint", "subgraph", name, "endpoint", ep)
			r.record(ctx, history.Event{Type: history.EventDiscover, Subgraph: name, PID: t.PID(), Endpoint: ep})
			return ep, nil
		}

		pause.Reset(r.pollInterval)
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				metrics.ObserveDiscovery(metrics.DiscoveryCanceled, time.Since(start).Seconds())
				return "", ctx.Err()
			}
			metrics.ObserveDiscovery(metrics.DiscoveryTimeout, time.Since(start).Seconds())
			return "", &Error{Kind: KindDiscoveryTimeout, Subgraph: name, Timeout: r.discoveryTimeout}
		case <-pause.C:
		}
	}
}

// pollOnce runs one scan. The chooser gets the caller's ctx rather than
// pollCtx so a user answering the prompt is not cut off by the timeout.
func (r *Runner) pollOnce(ctx, pollCtx context.Context, scanner EndpointScanner, baseline subgraph.EndpointSet) (subgraph.Endpoint, string, bool) {
	found, err := scanner.GraphQLEndpointsExcept(pollCtx, baseline)
	if err != nil {
		r.logger.Debug("endpoint scan failed", "error", err)
		return "", "", false
	}
	switch len(found) {
	case 0:
		return "", "", false
	case 1:
		return found[0], metrics.DiscoveryFound, true
	}
	idx, err := r.chooser.SelectOne(ctx, found)
	if err != nil {
		r.logger.Debug("no endpoint selected", "candidates", len(found), "error", err)
		return "", "", false
	}
	if idx < 0 || idx >= len(found) {
		r.logger.Debug("selected index out of range", "index", idx, "candidates", len(found))
		return "", "", false
	}
	return found[idx], metrics.DiscoveryChosen, true
}
