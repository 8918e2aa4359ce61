package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recorder struct {
	tags []map[string]string
}

func (r *recorder) CaptureException(_ error, tags map[string]string) { r.tags = append(r.tags, tags) }
func (r *recorder) Recover()                                         {}
func (r *recorder) Flush(time.Duration)                              {}

func TestCaptureTags(t *testing.T) {
	rec := &recorder{}
	prev := Init(rec)
	defer Init(prev)

	Capture(errors.New("boom"), "detect", "truck", "t1", "dangling")
	Capture(nil, "detect")
	if len(rec.tags) != 1 {
		t.Fatalf("expected one capture got %d", len(rec.tags))
	}
	got := rec.tags[0]
	if got["op"] != "detect" || got["truck"] != "t1" || len(got) != 2 {
		t.Fatalf("unexpected tags %v", got)
	}
}
