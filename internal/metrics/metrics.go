package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and conversion
// work. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	completionsTotal = make(map[completionKey]int64)
	pagesTotal       = make(map[pageKey]int64)
	jobsTotal        = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type completionKey struct {
	Kind    string
	Success string
}

type pageKey struct {
	Mode    string
	Outcome string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordCompletion increments completion-call counters by client kind.
func RecordCompletion(kind string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	completionsTotal[completionKey{Kind: kind, Success: s}]++
}

// RecordPage increments the per-page conversion counter by processing
// mode and outcome.
func RecordPage(mode, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	pagesTotal[pageKey{Mode: mode, Outcome: outcome}]++
}

// RecordJob increments the job counter for a terminal status.
func RecordJob(status string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[status]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP mdocr_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE mdocr_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "mdocr_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP mdocr_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE mdocr_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP mdocr_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE mdocr_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "mdocr_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "mdocr_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Completion-call metrics
	b.WriteString("# HELP mdocr_llm_completions_total Total completion provider calls\n")
	b.WriteString("# TYPE mdocr_llm_completions_total counter\n")

	var compKeys []completionKey
	for k := range completionsTotal {
		compKeys = append(compKeys, k)
	}
	sort.Slice(compKeys, func(i, j int) bool {
		if compKeys[i].Kind != compKeys[j].Kind {
			return compKeys[i].Kind < compKeys[j].Kind
		}
		return compKeys[i].Success < compKeys[j].Success
	})

	for _, k := range compKeys {
		v := completionsTotal[k]
		fmt.Fprintf(&b, "mdocr_llm_completions_total{kind=\"%s\",success=\"%s\"} %d\n",
			k.Kind, k.Success, v)
	}

	// Page conversion metrics
	b.WriteString("# HELP mdocr_pages_converted_total Total pages processed by mode and outcome\n")
	b.WriteString("# TYPE mdocr_pages_converted_total counter\n")

	var pageKeys []pageKey
	for k := range pagesTotal {
		pageKeys = append(pageKeys, k)
	}
	sort.Slice(pageKeys, func(i, j int) bool {
		if pageKeys[i].Mode != pageKeys[j].Mode {
			return pageKeys[i].Mode < pageKeys[j].Mode
		}
		return pageKeys[i].Outcome < pageKeys[j].Outcome
	})

	for _, k := range pageKeys {
		v := pagesTotal[k]
		fmt.Fprintf(&b, "mdocr_pages_converted_total{mode=\"%s\",outcome=\"%s\"} %d\n",
			k.Mode, k.Outcome, v)
	}

	// Job outcome metrics
	b.WriteString("# HELP mdocr_jobs_total Total jobs by terminal status\n")
	b.WriteString("# TYPE mdocr_jobs_total counter\n")

	var statuses []string
	for s := range jobsTotal {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "mdocr_jobs_total{status=\"%s\"} %d\n", s, jobsTotal[s])
	}

	return b.String()
}
