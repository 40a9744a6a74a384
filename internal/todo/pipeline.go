package todo

import (
	"time"

	"github.com/shpitdev/commsync-todo/internal/llm"
	"go.uber.org/zap"
)

const defaultBodyPreview = 200

type Options struct {
	Logger  *zap.Logger
	Metrics *Metrics

	// Now supplies the current date for prompts. Defaults to time.Now.
	Now func() time.Time

	// DedupBodyPreview caps how much of an existing task's body the deduplication
	// prompt includes.
	DedupBodyPreview int
}

// Pipeline runs the task generation stages against one model and one task store.
// It holds no per-run state and may be shared.
type Pipeline struct {
	model       llm.Model
	store       TaskStore
	log         *zap.Logger
	metrics     *Metrics
	now         func() time.Time
	bodyPreview int
}

func New(model llm.Model, store TaskStore, opts Options) *Pipeline {
	p := &Pipeline{
		model:       model,
		store:       store,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		now:         opts.Now,
		bodyPreview: opts.DedupBodyPreview,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.bodyPreview <= 0 {
		p.bodyPreview = defaultBodyPreview
	}
	return p
}

func (p *Pipeline) today() string {
	return p.now().UTC().Format("2006-01-02")
}
