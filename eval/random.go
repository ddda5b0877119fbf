package eval

import (
	"github.com/tensorwave/oclgraph/buffer"
	"github.com/tensorwave/oclgraph/evalerr"
	"github.com/tensorwave/oclgraph/graphir"
	"github.com/tensorwave/oclgraph/session"
)

func (e *Evaluator) randomUniform(ctx *session.Context, t *graphir.Tensor) (*buffer.Buffer, error) {
	buf, err := e.Factory.CreateResultBuffer(t.DType(), t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	low := floatOption(t, "min", 0)
	high := floatOption(t, "max", 1)
	graphID, graphSeed, opSeed := seedsOf(t)
	e.Randomizer.Uniform(buf, low, high, graphID, graphSeed, opSeed, t.Name())
	return buf, nil
}

func (e *Evaluator) randomNormal(ctx *session.Context, t *graphir.Tensor) (*buffer.Buffer, error) {
	buf, err := e.Factory.CreateResultBuffer(t.DType(), t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	mean := floatOption(t, "mean", 0)
	stddev := floatOption(t, "stddev", 1)
	graphID, graphSeed, opSeed := seedsOf(t)
	e.Randomizer.Normal(buf, mean, stddev, graphID, graphSeed, opSeed, t.Name())
	return buf, nil
}

func (e *Evaluator) glorotUniform(ctx *session.Context, t *graphir.Tensor) (*buffer.Buffer, error) {
	buf, err := e.Factory.CreateResultBuffer(t.DType(), t.Shape(), t.Name())
	if err != nil {
		return nil, evalerr.DeviceError(t, err)
	}
	graphID, graphSeed, opSeed := seedsOf(t)
	e.Randomizer.GlorotUniform(buf, graphID, graphSeed, opSeed, t.Name())
	return buf, nil
}

func seedsOf(t *graphir.Tensor) (graphID string, graphSeed, opSeed *int64) {
	if t.Graph != nil {
		graphID, graphSeed = t.Graph.ID(), t.Graph.Seed
	}
	if v, ok := t.Options["seed"].(int64); ok {
		opSeed = &v
	}
	return graphID, graphSeed, opSeed
}

func floatOption(t *graphir.Tensor, key string, def float64) float64 {
	switch v := t.Options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return def
	}
}
