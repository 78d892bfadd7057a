package pipeline

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-materials/models"
	"github.com/google/go-cmp/cmp"
)

type mockWriter struct {
	writes  []models.ResultSet
	err     error
	path    string
	invalid error
}

func (mw *mockWriter) Write(rs models.ResultSet) error {
	mw.writes = append(mw.writes, rs)
	return mw.err
}

func (mw *mockWriter) Validate() error {
	return mw.invalid
}

func (mw *mockWriter) Path() string {
	if mw.path == "" {
		return "mock"
	}
	return mw.path
}

func material(shop, keyword, title string) models.Material {
	return models.Material{
		Shop:     shop,
		Date:     "19/10/2026",
		Material: keyword,
		Title:    title,
		Price:    "$ 1",
	}
}

func TestPipelineProcessGroupsAndFlattens(t *testing.T) {
	p := NewPipeline(&mockWriter{})

	if err := p.Process(
		material("Sagosa", "cemento", "Cemento Loma Negra"),
		material("Corralon", "hierro", "Hierro 8mm"),
		material("Sagosa", "cemento", "Cemento Avellaneda"),
	); err != nil {
		t.Fatalf("process: %v", err)
	}

	rs := p.Result()
	if len(rs.Records) != 3 || len(rs.Groups) != 2 {
		t.Fatalf("records=%d groups=%d, want 3/2", len(rs.Records), len(rs.Groups))
	}
	if rs.Groups[0].Shop != "Sagosa" || rs.Groups[1].Shop != "Corralon" {
		t.Fatalf("group order = %s, %s", rs.Groups[0].Shop, rs.Groups[1].Shop)
	}
	if sagosa := rs.Shop("Sagosa"); len(sagosa) != 2 || sagosa[1].Title != "Cemento Avellaneda" {
		t.Fatalf("sagosa group = %+v", sagosa)
	}

	var titles []string
	for _, m := range rs.Records {
		titles = append(titles, m.Title)
	}
	want := []string{"Cemento Loma Negra", "Hierro 8mm", "Cemento Avellaneda"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Fatalf("flat order (-want +got):\n%s", diff)
	}
}

func TestPipelineDropsRecordsFailingAdmission(t *testing.T) {
	p := NewPipeline(&mockWriter{})

	if err := p.Process(
		material("Sagosa", "cemento", "Cemento Loma Negra"),
		material("Sagosa", "cemento", "Hierro 8mm"),
		material("", "cemento", "Cemento sin comercio"),
		material("Sagosa", "bolson", "Bolsón de arena"),
	); err != nil {
		t.Fatalf("process: %v", err)
	}

	if got := p.Result().Count(); got != 1 {
		t.Fatalf("admitted=%d, want 1", got)
	}
	stats := p.Stats()
	if stats.Processed != 1 || stats.ValidationErrors["invalid_record"] != 3 {
		t.Fatalf("stats = %+v, want 1 processed and 3 invalid", stats)
	}
}

func TestPipelineResultIsSnapshot(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	if err := p.Process(material("Sagosa", "cemento", "Cemento A")); err != nil {
		t.Fatalf("process: %v", err)
	}

	before := p.Result()
	if err := p.Process(material("Sagosa", "cemento", "Cemento B")); err != nil {
		t.Fatalf("process: %v", err)
	}

	if before.Count() != 1 || len(before.Shop("Sagosa")) != 1 {
		t.Fatalf("snapshot changed after Process: %+v", before)
	}
	if got := p.Result().Count(); got != 2 {
		t.Fatalf("count=%d, want 2", got)
	}
}

func TestPipelineCloseWritesOnceEvenWhenEmpty(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(writer.writes) != 1 || writer.writes[0].Count() != 0 {
		t.Fatalf("writes = %+v, want one empty write", writer.writes)
	}

	if err := p.Process(material("Sagosa", "cemento", "Cemento")); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineCloseReportsWriterError(t *testing.T) {
	boom := errors.New("disk full")
	p := NewPipeline(&mockWriter{err: boom})
	if err := p.Process(material("Sagosa", "cemento", "Cemento")); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("close = %v, want %v", err, boom)
	}
	if err := p.Err(); !errors.Is(err, boom) {
		t.Fatalf("Err = %v, want %v", err, boom)
	}
	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("second close = %v, want %v", err, boom)
	}
}

func TestPipelineCSVRowsMatchJSONTotals(t *testing.T) {
	p := NewPipeline(&mockWriter{})
	for _, m := range []models.Material{
		material("A", "cemento", "Cemento 1"),
		material("B", "cemento", "Cemento 2"),
		material("A", "hierro", "Hierro 1"),
		material("C", "bolsón", "Bolsón de arena"),
	} {
		if err := p.Process(m); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	rs := p.Result()
	total := 0
	for _, g := range rs.Groups {
		total += len(g.Materials)
	}
	if total != len(rs.Records) || total != 4 {
		t.Fatalf("grouped=%d flat=%d, want 4/4", total, len(rs.Records))
	}
}
