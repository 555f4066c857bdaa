package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pagetoc/internal/config"
	"github.com/dgallion1/pagetoc/internal/metrics"
	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/dgallion1/pagetoc/internal/toc"
)

const activePage = `<html><body>
<div class="side-bar"><ul class="nav-list">
<li class="nav-list-item"><a class="nav-list-link active" href="/a">A</a></li>
</ul></div>
<div class="main-content"><h2 id="one">One</h2><h3 id="two">Two</h3></div>
</body></html>`

const bareContent = `<html><body><div class="main-content"><h2 id="x">X</h2></div></body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBuilder(t *testing.T) *page.Builder {
	t.Helper()
	b, err := config.DefaultConfig().NewBuilder()
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	return b
}

func waitForStatus(t *testing.T, job *Job, want JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job.Snapshot().Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q (last %q)", job.ID, want, job.Snapshot().Status)
}

func TestWorker_Process(t *testing.T) {
	stats := metrics.NewBuildStats(time.Hour)
	w := NewWorker(testBuilder(t), stats, testLogger(), 2)

	job := NewJob([]PageInput{
		{Filename: "a.html", Data: []byte(activePage)},
		{Filename: "b.html", Data: []byte(bareContent)},
		{Filename: "c.html", Data: []byte("<p>no region</p>")},
	})
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Progress.PagesProcessed != 3 {
		t.Errorf("expected 3 pages processed, got %d", snap.Progress.PagesProcessed)
	}
	wantStatus := []page.Status{page.StatusInserted, page.StatusUnattached, page.StatusNoContent}
	for i, want := range wantStatus {
		if snap.Pages[i].Status != want {
			t.Errorf("page %d: expected status %q, got %q", i, want, snap.Pages[i].Status)
		}
	}
	if snap.Pages[0].Links != 2 {
		t.Errorf("expected 2 links on first page, got %d", snap.Pages[0].Links)
	}
	if got, want := snap.Pages[0].ContentHash, ContentHashHex([]byte(activePage)); got != want {
		t.Errorf("expected content hash %q, got %q", want, got)
	}

	_, out, ok := job.Output(0)
	if !ok {
		t.Fatal("expected output for first page")
	}
	if !strings.Contains(string(out), toc.ContainerID) || !strings.Contains(string(out), `href="#two"`) {
		t.Errorf("expected TOC in output, got %s", out)
	}

	if job.Inputs() != nil {
		t.Error("expected inputs to be released")
	}
	if got := stats.Snapshot().Count; got != 3 {
		t.Errorf("expected 3 recorded builds, got %d", got)
	}
}

func TestWorker_CancelledContext(t *testing.T) {
	w := NewWorker(testBuilder(t), nil, testLogger(), 1)
	inputs := make([]PageInput, 50)
	for i := range inputs {
		inputs[i] = PageInput{Filename: "a.html", Data: []byte(activePage)}
	}
	job := NewJob(inputs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Process(ctx, job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "cancelled" {
		t.Errorf("expected failed/cancelled, got %q/%q", snap.Status, snap.Phase)
	}
	if snap.Progress.PagesProcessed != 0 {
		t.Errorf("expected no pages processed, got %d", snap.Progress.PagesProcessed)
	}
}

func TestAcquire_ReturnsOnCancelWhileFull(t *testing.T) {
	sem := make(chan struct{}, 1)
	sem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- acquire(ctx, sem) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected acquire to give up after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("acquire still blocked after cancel")
	}
}

func TestAcquire_FreeSlot(t *testing.T) {
	sem := make(chan struct{}, 1)
	if !acquire(context.Background(), sem) {
		t.Fatal("expected a free slot to be taken")
	}
	if len(sem) != 1 {
		t.Errorf("expected slot to be held, len=%d", len(sem))
	}
}

func TestOrchestrator_SubmitAndComplete(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.WorkerCount = 1
	o := NewOrchestrator(cfg, testBuilder(t), metrics.NewBuildStats(time.Hour), testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob([]PageInput{{Filename: "a.html", Data: []byte(activePage)}})
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected submitted job to be retrievable")
	}

	waitForStatus(t, job, StatusCompleted)

	_, out, ok := job.Output(0)
	if !ok || !strings.Contains(string(out), toc.ContainerID) {
		t.Errorf("expected processed page with TOC, got ok=%v", ok)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := *config.DefaultConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, testBuilder(t), nil, testLogger())

	if err := o.Submit(NewJob(nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	job := NewJob(nil)
	err := o.Submit(job)
	if err == nil || !strings.Contains(err.Error(), "queue is full") {
		t.Errorf("expected queue full error, got %v", err)
	}
	if job.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", job.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o := NewOrchestrator(*config.DefaultConfig(), testBuilder(t), nil, testLogger())
	o.Start(context.Background())
	o.Stop()
	o.Stop() // second call is a no-op

	job := NewJob([]PageInput{{Filename: "a.html", Data: []byte(activePage)}})
	err := o.Submit(job)
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "stopped" {
		t.Errorf("expected failed/stopped, got %q/%q", snap.Status, snap.Phase)
	}
	if o.GetJob(job.ID) != nil {
		t.Error("expected rejected job not to be stored")
	}
}
