package warmup

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/google/uuid"
)

// LogLine is the outcome of warming one template in one language for one
// store. A line with StoreID set and no template records a failed load.
type LogLine struct {
	Time         time.Time         `json:"time"`
	StoreID      kernel.StoreID    `json:"store_id"`
	TemplateID   kernel.TemplateID `json:"template_id,omitempty"`
	TemplateName string            `json:"template_name,omitempty"`
	LanguageID   kernel.LanguageID `json:"language_id,omitempty"`
	LanguageName string            `json:"language_name,omitempty"`
	SubjectOK    bool              `json:"subject_ok"`
	BodyOK       bool              `json:"body_ok"`
	Error        string            `json:"error,omitempty"`
}

func (l LogLine) Failed() bool {
	return !l.SubjectOK || !l.BodyOK || l.Error != ""
}

func (l LogLine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s store %d", l.Time.Format("15:04:05"), l.StoreID)
	if l.TemplateName != "" {
		fmt.Fprintf(&b, " template %s (id %d) language %s (id %d): subject ok=%t, body ok=%t",
			l.TemplateName, l.TemplateID, l.LanguageName, l.LanguageID, l.SubjectOK, l.BodyOK)
	}
	if l.Error != "" {
		b.WriteString(" failed: ")
		b.WriteString(l.Error)
	}
	return b.String()
}

// Run is one warm-up sweep.
type Run struct {
	ID         uuid.UUID `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Lines      []LogLine `json:"lines"`

	// Error is set when the sweep itself was aborted.
	Error string `json:"error,omitempty"`
}

func (r *Run) Failures() int {
	n := 0
	for _, l := range r.Lines {
		if l.Failed() {
			n++
		}
	}
	return n
}

func (r *Run) OK() bool {
	return r.Error == "" && r.Failures() == 0
}

// Log formats every line, one per row.
func (r *Run) Log() string {
	var b strings.Builder
	for _, l := range r.Lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	if r.Error != "" {
		b.WriteString(r.Error)
		b.WriteByte('\n')
	}
	return b.String()
}

// RunHistory keeps the most recent runs.
type RunHistory struct {
	mu   sync.RWMutex
	size int
	runs []*Run
}

func NewRunHistory(size int) *RunHistory {
	if size <= 0 {
		size = 20
	}
	return &RunHistory{size: size}
}

func (h *RunHistory) Add(r *Run) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, r)
	if len(h.runs) > h.size {
		h.runs = h.runs[len(h.runs)-h.size:]
	}
}

// List returns the kept runs, newest first.
func (h *RunHistory) List() []*Run {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Run, len(h.runs))
	for i, r := range h.runs {
		out[len(h.runs)-1-i] = r
	}
	return out
}

func (h *RunHistory) Get(id uuid.UUID) (*Run, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.runs {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}
