// Package pipeline runs the batch sales aggregation: Load, Clean, Transform,
// Aggregate and Persist, strictly in order, in one engine session.
//
// Each stage creates one relation in the session and hands the next stage a
// Relation value; nothing outside the session holds intermediate data. The
// first failing stage ends the run with a *StageError.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"salesagg/internal/engine"
	"salesagg/internal/metrics"
)

// Pipeline is a configured, reusable runner. Each Run opens its own session.
type Pipeline struct {
	opts Options
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts.withDefaults()}
}

// run is the state of one execution.
type run struct {
	opts Options
	log  zerolog.Logger
	sess *engine.Session
	col  *metrics.Collector
	res  *Result
}

// Run executes the five stages over the files in inputDir and writes the
// aggregate to outputPath. On failure the partially filled Result is returned
// with the error; its Metrics are always set.
func (p *Pipeline) Run(ctx context.Context, inputDir, outputPath string) (res *Result, err error) {
	runID := uuid.NewString()
	log := p.opts.Log.With().Str("run_id", runID).Str("engine", p.opts.Engine.Kind).Logger()

	colOpts := append([]metrics.Option{
		metrics.WithLogger(log),
		metrics.WithTitle(summaryTitle(p.opts.Engine.Kind)),
	}, p.opts.Collector...)
	col := metrics.NewCollector(colOpts...)
	col.Start()
	col.Sample("start")

	res = &Result{RunID: runID, Engine: p.opts.Engine.Kind, InputDir: inputDir, OutputPath: outputPath}
	defer func() {
		res.Metrics = col.Summary()
		p.opts.Reporter.RecordRun(res.Metrics, err)
		if ferr := p.opts.Reporter.Flush(); ferr != nil {
			log.Warn().Err(ferr).Msg("metrics flush failed")
		}
	}()

	log.Info().Str("input_dir", inputDir).Str("output", outputPath).Msg("pipeline starting")

	sess, err := engine.Open(ctx, p.opts.Engine)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("engine close failed")
		}
	}()

	r := &run{opts: p.opts, log: log, sess: sess, col: col, res: res}

	raw, err := r.stage(ctx, StageLoad, func() (Relation, error) { return r.load(ctx, inputDir, outputPath) })
	if err != nil {
		return res, err
	}
	cleaned, err := r.stage(ctx, StageClean, func() (Relation, error) { return r.clean(ctx, raw) })
	if err != nil {
		return res, err
	}
	transformed, err := r.stage(ctx, StageTransform, func() (Relation, error) { return r.transform(ctx, cleaned) })
	if err != nil {
		return res, err
	}
	aggregated, err := r.stage(ctx, StageAggregate, func() (Relation, error) { return r.aggregate(ctx, transformed) })
	if err != nil {
		return res, err
	}
	if _, err := r.stage(ctx, StagePersist, func() (Relation, error) { return r.persist(ctx, aggregated, outputPath) }); err != nil {
		return res, err
	}

	log.Info().Int64("products", res.Products).Str("checksum", res.Checksum).Msg("pipeline complete")
	return res, nil
}

// stage times fn, samples memory afterwards and wraps any failure.
func (r *run) stage(ctx context.Context, s Stage, fn func() (Relation, error)) (Relation, error) {
	if err := ctx.Err(); err != nil {
		return Relation{}, &StageError{Stage: s, Err: err}
	}
	r.log.Debug().Str("stage", string(s)).Msg("stage starting")
	start := time.Now()

	rel, err := fn()
	elapsed := time.Since(start)
	r.col.Sample(string(s))
	r.opts.Reporter.RecordStep(string(s), err, elapsed)

	if err != nil {
		r.log.Error().Err(err).Str("stage", string(s)).Dur("elapsed", elapsed).Msg("stage failed")
		return Relation{}, &StageError{Stage: s, Err: err}
	}
	r.log.Info().Str("stage", string(s)).Str("relation", rel.Name).Int64("rows", rel.Rows).
		Dur("elapsed", elapsed).Msg("stage complete")
	return rel, nil
}

func summaryTitle(kind string) string {
	switch kind {
	case "duckdb":
		return "Go + DuckDB"
	case "sqlite":
		return "Go + SQLite"
	}
	return "Go + " + kind
}
