package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/sonance/internal/formatter"
	"github.com/desertthunder/sonance/internal/shared"
	"github.com/urfave/cli/v3"
)

// Discover runs a natural-language search. All arguments are joined into the query.
func (r *Runner) Discover(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	result, err := r.library.Discover(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Discover: " + result.Query)
	if result.Interpretation != "" {
		r.writePlain("%s\n\n", result.Interpretation)
	}
	if len(result.Tracks) == 0 {
		return r.writePlain("No matches\n")
	}
	r.writeTracks(result.Tracks)
	return nil
}

// Recommend asks the recommendation agent for tracks matching a prompt.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.Join(cmd.Args().Slice(), " ")
	if prompt == "" {
		return fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	r.logger.Info("running recommendation agent", "prompt", prompt)
	rec, err := r.library.Recommend(ctx, prompt)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(rec, true)
	}

	r.writePlainHeader("Recommendations")
	if cmd.Bool("steps") {
		for i, step := range rec.Steps {
			r.writePlain("%d. %s(%s)\n", i+1, step.Tool, step.Input)
		}
		r.writePlain("\n")
	}
	r.writeTracks(rec.Tracks)
	if rec.Summary != "" {
		r.writePlainln("%s", rec.Summary)
	}
	return nil
}

// Embeddings prints the embedding projection, summarized per cluster unless --json is set.
func (r *Runner) Embeddings(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	points, err := r.library.Embeddings(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(points, true)
	}

	clusters := map[int]int{}
	for _, p := range points {
		clusters[p.Cluster]++
	}
	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	r.writePlainHeader("Embeddings")
	r.writePlain("Points:   %s\n", formatter.Count(len(points)))
	r.writePlain("Clusters: %d\n\n", len(ids))
	for _, id := range ids {
		r.writePlain("cluster %-4d %s tracks\n", id, formatter.Count(clusters[id]))
	}
	return nil
}
