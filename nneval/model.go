package nneval

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash"
	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/kestrelchess/kestrel/cache"
	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/policy"
)

// Model is a live ONNX graph instance. Instances are cheap relative to
// inference and are not safe for concurrent use; the batch worker builds
// one per batch from the shared template.
type Model struct {
	backend *gorgonnx.Graph
	model   *onnx.Model
}

// ModelTemplate holds the raw ONNX model data.
type ModelTemplate struct {
	data []byte
}

// NewInstance creates a new Model from the template.
func (t *ModelTemplate) NewInstance() (*Model, error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Milliseconds()
		log.Debug().Int64("onnx_model_init_ms", elapsed).Msg("onnx model instance created")
	}()
	backend := gorgonnx.NewGraph()
	model := onnx.NewModel(backend)
	err := model.UnmarshalBinary(t.data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ONNX model: %w", err)
	}
	return &Model{
		backend: backend,
		model:   model,
	}, nil
}

// modelLoadFunc reads the network file behind an "onnx:<path>" cache key.
func modelLoadFunc(cfg *config.Config, key string) (interface{}, error) {
	fields := strings.SplitN(key, ":", 2)
	if fields[0] != "onnx" || len(fields) != 2 {
		return nil, errors.New("modelloadfunc - bad cache key: " + key)
	}
	f, err := os.Open(fields[1])
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	defer f.Close()
	bytes, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}

	log.Debug().Str("path", fields[1]).
		Int("model-size", len(bytes)).
		Uint64("model-digest", xxhash.Sum64(bytes)).
		Msg("loaded-onnx-model")

	return &ModelTemplate{data: bytes}, nil
}

// LoadModelTemplate fetches (and caches process-wide) the network named
// by the config's network-path.
func LoadModelTemplate(cfg *config.Config) (*ModelTemplate, error) {
	obj, err := cache.Load(cfg, "onnx:"+cfg.GetString(config.ConfigNetworkPath), modelLoadFunc)
	if err != nil {
		return nil, err
	}
	tmpl, ok := obj.(*ModelTemplate)
	if !ok {
		return nil, errors.New("failed to type-assert ONNX model template")
	}
	return tmpl, nil
}

// netOutputs is one batch's decoded network output.
type netOutputs struct {
	policy []float32 // batch * 1858 logits
	wdl    []float32 // batch * 3 logits, nil if the net has no WDL head
	value  []float32 // batch scalars, nil if the net has no value head
}

// batchRunner abstracts the network call so tests can stub it out.
type batchRunner interface {
	run(planes []float32, batchSize, numPlanes int) (*netOutputs, error)
}

// onnxRunner runs each batch through a fresh graph instance; graph
// shapes are fixed at bind time and batch sizes vary between calls.
type onnxRunner struct {
	template *ModelTemplate
}

func (r *onnxRunner) run(planes []float32, batchSize, numPlanes int) (*netOutputs, error) {
	model, err := r.template.NewInstance()
	if err != nil {
		return nil, fmt.Errorf("failed to create new ONNX model instance: %w", err)
	}

	input := tensor.New(tensor.WithShape(batchSize, numPlanes, 8, 8),
		tensor.WithBacking(planes))
	model.model.SetInput(0, input)

	if err := model.backend.Run(); err != nil {
		return nil, fmt.Errorf("failed to run ONNX model: %w", err)
	}

	outputs, err := model.model.GetOutputTensors()
	if err != nil {
		return nil, fmt.Errorf("failed to get output tensors: %w", err)
	}
	return classifyOutputs(outputs, batchSize)
}

// classifyOutputs discovers the heads by per-element counts: 1858 is the
// policy, 3 is WDL, 1 is a scalar value.
func classifyOutputs(outputs []tensor.Tensor, batchSize int) (*netOutputs, error) {
	out := &netOutputs{}
	for _, o := range outputs {
		data, err := tensorFloats(o)
		if err != nil {
			return nil, err
		}
		if len(data)%batchSize != 0 {
			return nil, fmt.Errorf("output length %d not divisible by batch %d", len(data), batchSize)
		}
		switch len(data) / batchSize {
		case policy.NumMoveSlots:
			out.policy = data
		case 3:
			out.wdl = data
		case 1:
			out.value = data
		default:
			log.Debug().Int("elements", len(data)/batchSize).Msg("ignoring unrecognized network output")
		}
	}
	if out.policy == nil {
		return nil, errors.New("network has no 1858-element policy output")
	}
	if out.wdl == nil && out.value == nil {
		return nil, errors.New("network has neither a WDL nor a scalar value output")
	}
	return out, nil
}

func tensorFloats(t tensor.Tensor) ([]float32, error) {
	switch v := t.Data().(type) {
	case []float32:
		return v, nil
	case float32:
		return []float32{v}, nil
	default:
		return nil, fmt.Errorf("unexpected output type: %T", v)
	}
}
