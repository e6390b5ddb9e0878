// Package telemetrytest provides a telemetry.API that remembers what it was told.
package telemetrytest

import (
	"sync"

	"gelbeseiten-scraper/internal/components/telemetry"
)

type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder implements telemetry.API and forwards everything to SlogAPI
// after recording it.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
	inner   telemetry.SlogAPI
}

func (r *Recorder) record(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
	r.inner.ReportBroken(id, params...)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
	r.inner.ReportWarning(id, params...)
}

func (r *Recorder) ReportInfo(msg string, params ...any) {
	r.record("info", msg, params)
	r.inner.ReportInfo(msg, params...)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
	r.inner.ReportDebug(msg, params...)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
	r.inner.ReportCount(id, count)
}

// Reports returns every report of the given kind ("broken", "warning", "info", "debug", "count").
func (r *Recorder) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind {
			out = append(out, rep)
		}
	}
	return out
}
