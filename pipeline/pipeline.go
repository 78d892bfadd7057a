package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-materials/models"
	"github.com/aluiziolira/go-scrape-materials/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter persists a complete result set.
type OutputWriter interface {
	Write(rs models.ResultSet) error
	Validate() error
	Path() string
}

// Pipeline is the run-scoped builder of the grouped and flat views. It
// validates records on the way in and hands the final snapshot to the
// writer once on Close.
type Pipeline struct {
	writer OutputWriter

	mu         sync.Mutex
	groups     []models.ShopGroup
	groupIndex map[string]int
	records    []models.Material
	metrics    metrics
	closed     bool
	err        error
}

// NewPipeline builds an empty pipeline.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:     writer,
		groupIndex: make(map[string]int),
		metrics:    newMetrics(),
	}
}

// Process appends materials to both views. Invalid records are counted and
// dropped.
func (p *Pipeline) Process(materials ...models.Material) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	for i := range materials {
		m := materials[i]
		if err := parser.ValidateMaterial(&m); err != nil {
			p.metrics.addValidation("invalid_record")
			slog.Debug("dropping invalid record", slog.String("shop", m.Shop), slog.Any("error", err))
			continue
		}

		idx, ok := p.groupIndex[m.Shop]
		if !ok {
			idx = len(p.groups)
			p.groupIndex[m.Shop] = idx
			p.groups = append(p.groups, models.ShopGroup{Shop: m.Shop})
		}
		p.groups[idx].Materials = append(p.groups[idx].Materials, m)
		p.records = append(p.records, m)
		p.metrics.incrementProcessed()
	}
	return nil
}

// Result returns a snapshot that later calls to Process do not affect.
func (p *Pipeline) Result() models.ResultSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Close stops accepting records and writes the snapshot, even when empty.
// Calling Close again returns the first result.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.err
		p.mu.Unlock()
		return err
	}
	p.closed = true
	rs := p.snapshotLocked()
	p.mu.Unlock()

	var err error
	if p.writer != nil {
		if werr := p.writer.Write(rs); werr != nil {
			err = fmt.Errorf("write results: %w", werr)
		}
	}

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	return err
}

// Err returns the error recorded by Close.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns a snapshot of the internal counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.snapshot()
}

func (p *Pipeline) snapshotLocked() models.ResultSet {
	groups := make([]models.ShopGroup, len(p.groups))
	for i, g := range p.groups {
		materials := make([]models.Material, len(g.Materials))
		copy(materials, g.Materials)
		groups[i] = models.ShopGroup{Shop: g.Shop, Materials: materials}
	}
	records := make([]models.Material, len(p.records))
	copy(records, p.records)
	return models.ResultSet{Groups: groups, Records: records}
}

// Stats counts what went through the pipeline.
type Stats struct {
	Processed        int
	ValidationErrors map[string]int
}

// metrics is guarded by Pipeline.mu.
type metrics struct {
	processed  int
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.processed++
}

func (m *metrics) addValidation(kind string) {
	m.validation[kind]++
}

func (m *metrics) snapshot() Stats {
	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	return Stats{
		Processed:        m.processed,
		ValidationErrors: copyValidation,
	}
}
