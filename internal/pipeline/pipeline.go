// Package pipeline drives uploaded recordings through transcription and
// summarization in background workers.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voicebrief/voicebrief/internal/asr"
	"github.com/voicebrief/voicebrief/internal/blob"
	"github.com/voicebrief/voicebrief/internal/cache"
	"github.com/voicebrief/voicebrief/internal/config"
	"github.com/voicebrief/voicebrief/internal/store"
	"github.com/voicebrief/voicebrief/internal/summarize"
	"github.com/voicebrief/voicebrief/pkg/models"
)

// User-facing failure messages stored on the job.
const (
	MsgNoSpeech         = "No speech detected in audio"
	MsgProcessingFailed = "Processing failed"
)

// statusTTL bounds how long the cached status mirror may outlive the row.
const statusTTL = 30 * time.Minute

// ErrQueueFull is returned by Enqueue when the task buffer is saturated and
// the caller's context expires before a slot frees up.
var ErrQueueFull = errors.New("pipeline queue full")

type task struct {
	jobID    uuid.UUID
	userID   uuid.UUID
	audioURL string
}

// Orchestrator runs the transcribe-then-summarize pipeline for each enqueued
// job on a fixed pool of workers. It never returns errors to the enqueuer:
// every failure ends with the job marked failed, and workers recover panics.
type Orchestrator struct {
	store      store.Store
	cache      cache.Cache
	blobs      blob.Store
	transcribe asr.Client
	summarizer *summarize.Summarizer

	workers int
	tasks   chan task
	wg      sync.WaitGroup
}

func New(st store.Store, ca cache.Cache, blobs blob.Store, transcriber asr.Client, summarizer *summarize.Summarizer, cfg config.PipelineConfig) *Orchestrator {
	return &Orchestrator{
		store:      st,
		cache:      ca,
		blobs:      blobs,
		transcribe: transcriber,
		summarizer: summarizer,
		workers:    cfg.Workers,
		tasks:      make(chan task, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (o *Orchestrator) Start() {
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for t := range o.tasks {
				o.process(t)
			}
		}()
	}
	slog.Info("pipeline workers started", "workers", o.workers, "queue_size", cap(o.tasks))
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (o *Orchestrator) Stop() {
	close(o.tasks)
	o.wg.Wait()
}

// Enqueue hands a staged job to the worker pool. It blocks while the queue is
// full; if ctx expires first it returns ErrQueueFull.
func (o *Orchestrator) Enqueue(ctx context.Context, jobID, userID uuid.UUID, audioURL string) error {
	select {
	case o.tasks <- task{jobID: jobID, userID: userID, audioURL: audioURL}:
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// Stage persists the uploaded audio, advances the job to uploaded, and
// enqueues it for processing. Meant to run in its own goroutine after the
// upload response has been sent; any failure marks the job failed.
func (o *Orchestrator) Stage(jobID, userID uuid.UUID, name string, r io.Reader) {
	ctx := context.Background()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic staging job", "error", rec, "job_id", jobID)
			o.markFailed(ctx, jobID, userID, MsgProcessingFailed)
		}
	}()

	url, err := o.blobs.Save(ctx, name, r)
	if err != nil {
		slog.Error("staging audio failed", "error", err, "job_id", jobID)
		o.markFailed(ctx, jobID, userID, MsgProcessingFailed)
		return
	}

	if err := o.setStatus(ctx, jobID, userID, models.JobStatusUploaded, store.WithAudioURL(url)); err != nil {
		// Job deleted or already failed; the blob has no owner now.
		slog.Warn("job vanished during staging", "error", err, "job_id", jobID)
		_ = o.blobs.Delete(ctx, url)
		return
	}

	if err := o.Enqueue(ctx, jobID, userID, url); err != nil {
		o.markFailed(ctx, jobID, userID, MsgProcessingFailed)
	}
}

// process runs one job end to end. All failure paths converge on markFailed;
// nothing escapes the worker.
func (o *Orchestrator) process(t task) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing job", "error", r, "job_id", t.jobID)
			o.markFailed(ctx, t.jobID, t.userID, MsgProcessingFailed)
		}
	}()

	if err := o.setStatus(ctx, t.jobID, t.userID, models.JobStatusProcessing); err != nil {
		// Deleted, or failed by a concurrent writer. Nothing to do.
		slog.Warn("job not processable", "error", err, "job_id", t.jobID)
		return
	}

	result, err := o.transcribe.Transcribe(ctx, t.audioURL)
	if err != nil {
		if errors.Is(err, asr.ErrNoSpeech) {
			o.markFailed(ctx, t.jobID, t.userID, MsgNoSpeech)
			return
		}
		slog.Error("transcription failed", "error", err, "job_id", t.jobID, "provider", o.transcribe.Name())
		o.markFailed(ctx, t.jobID, t.userID, failureMessage(err))
		return
	}
	if strings.TrimSpace(result.Text) == "" {
		o.markFailed(ctx, t.jobID, t.userID, MsgNoSpeech)
		return
	}

	summary, err := o.summarizer.Summarize(ctx, result.Text)
	if err != nil {
		slog.Error("summarization failed", "error", err, "job_id", t.jobID)
		o.markFailed(ctx, t.jobID, t.userID, failureMessage(err))
		return
	}

	err = o.setStatus(ctx, t.jobID, t.userID, models.JobStatusCompleted,
		store.WithTranscript(result.Text),
		store.WithSummary(summary),
		store.WithDuration(result.DurationSeconds),
	)
	if err != nil {
		slog.Error("completing job failed", "error", err, "job_id", t.jobID)
		return
	}
	slog.Info("job completed", "job_id", t.jobID, "transcript_len", len(result.Text))
}

// setStatus writes the row first, then mirrors to the cache. A cache failure
// is logged and ignored: reads fall through to Postgres.
func (o *Orchestrator) setStatus(ctx context.Context, jobID, userID uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	if err := o.store.UpdateJobStatus(ctx, jobID, status, opts...); err != nil {
		return err
	}
	if err := o.cache.SetJobStatus(ctx, userID, jobID, status, statusTTL); err != nil {
		slog.Warn("caching job status failed", "error", err, "job_id", jobID)
	}
	return nil
}

// failureMessage surfaces the failing error's text on the job, falling back
// to the generic message when the error has none.
func failureMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MsgProcessingFailed
}

func (o *Orchestrator) markFailed(ctx context.Context, jobID, userID uuid.UUID, msg string) {
	err := o.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, store.WithErrorMessage(msg))
	if err != nil {
		// Either the job was deleted or it already reached a terminal
		// state; the transition guard keeps the first outcome.
		slog.Warn("marking job failed skipped", "error", err, "job_id", jobID)
		return
	}
	_ = o.cache.SetJobStatus(ctx, userID, jobID, models.JobStatusFailed, statusTTL)
}
