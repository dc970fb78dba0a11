package ctxutil

import (
	"context"
	"strconv"
)

type traceKey struct{}

// Trace identifies one request and the progression scope it touches. The
// scope fields are empty when a call is not about a particular project or
// day.
type Trace struct {
	TraceID   string
	RequestID string
	ProjectID string
	DayNumber *int
}

func WithTrace(ctx context.Context, tr *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, tr)
}

func TraceFrom(ctx context.Context) *Trace {
	if ctx == nil {
		return nil
	}
	tr, _ := ctx.Value(traceKey{}).(*Trace)
	return tr
}

// LogFields renders the non-empty fields as logger key/value pairs.
func (t *Trace) LogFields() []interface{} {
	if t == nil {
		return nil
	}
	var kv []interface{}
	if t.TraceID != "" {
		kv = append(kv, "trace_id", t.TraceID)
	}
	if t.RequestID != "" {
		kv = append(kv, "request_id", t.RequestID)
	}
	if t.ProjectID != "" {
		kv = append(kv, "project_id", t.ProjectID)
	}
	if t.DayNumber != nil {
		kv = append(kv, "day_number", *t.DayNumber)
	}
	return kv
}

// Memo is the subset carried onto background work started for the request,
// keyed the way workflow memos and search tooling expect strings.
func (t *Trace) Memo() map[string]interface{} {
	if t == nil {
		return nil
	}
	memo := map[string]interface{}{}
	if t.TraceID != "" {
		memo["trace_id"] = t.TraceID
	}
	if t.RequestID != "" {
		memo["request_id"] = t.RequestID
	}
	if t.ProjectID != "" {
		memo["project_id"] = t.ProjectID
	}
	if t.DayNumber != nil {
		memo["day_number"] = strconv.Itoa(*t.DayNumber)
	}
	if len(memo) == 0 {
		return nil
	}
	return memo
}
