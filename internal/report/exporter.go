package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"staytrack/internal/blob"
	"staytrack/internal/core"
	"staytrack/pkg/domain"
)

// EntityExport names export jobs in not-found errors.
const EntityExport domain.EntityType = "export"

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

// ExportStatus describes the lifecycle stage of an export job.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportRecord tracks one workbook export and its stored artifact.
type ExportRecord struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"owner_id"`
	Month       string       `json:"month"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Key         string       `json:"key,omitempty"`
	Filename    string       `json:"filename,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	URL         string       `json:"url,omitempty"`
	RequestedBy string       `json:"requested_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ExportKey is where a finished workbook is stored.
func ExportKey(ownerID, id string) string {
	return fmt.Sprintf("owners/%s/exports/%s.xlsx", ownerID, id)
}

type exportTask struct {
	id   string
	sess core.Session
}

// Worker renders workbooks in the background and stores them in a blob store.
type Worker struct {
	svc    *core.Service
	blobs  blob.Store
	logger *zap.Logger
	now    func() time.Time

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker. Call Start before enqueuing.
func NewWorker(svc *core.Service, blobs blob.Store, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		svc:    svc,
		blobs:  blobs,
		logger: logger.Named("export"),
		now:    time.Now,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport schedules a workbook for month. A blank month means the
// current month.
func (w *Worker) EnqueueExport(_ context.Context, sess core.Session, month string) (ExportRecord, error) {
	if err := sess.RequireOwner(); err != nil {
		return ExportRecord{}, err
	}
	if w.blobs == nil {
		return ExportRecord{}, core.ErrBlobStoreDisabled
	}
	if month == "" {
		month = w.svc.CurrentMonth().String()
	}
	month, err := domain.CanonicalMonth(month)
	if err != nil {
		return ExportRecord{}, domain.Invalid("month", "%v", err)
	}

	now := w.now().UTC()
	record := ExportRecord{
		ID:          uuid.NewString(),
		OwnerID:     sess.OwnerID,
		Month:       month,
		Status:      ExportStatusQueued,
		RequestedBy: sess.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	snapshot := record
	w.mu.Unlock()

	select {
	case w.queue <- exportTask{id: record.ID, sess: sess}:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	w.logger.Info("export queued", zap.String("export_id", record.ID), zap.String("owner_id", sess.OwnerID), zap.String("month", month))
	return snapshot, nil
}

// GetExport returns the job visible to sess. Finished jobs get a fresh
// download URL.
func (w *Worker) GetExport(ctx context.Context, sess core.Session, id string) (ExportRecord, error) {
	if err := sess.Authenticated(); err != nil {
		return ExportRecord{}, err
	}
	w.mu.RLock()
	record, ok := w.jobs[id]
	var snapshot ExportRecord
	if ok {
		snapshot = *record
	}
	w.mu.RUnlock()
	if !ok || !sess.Owns(snapshot.OwnerID) {
		return ExportRecord{}, domain.ErrNotFound{Entity: EntityExport, ID: id}
	}
	if snapshot.Status == ExportStatusSucceeded {
		if url, err := w.blobs.PresignURL(ctx, snapshot.Key, blob.SignedURLOptions{}); err == nil {
			snapshot.URL = url
		}
	}
	return snapshot, nil
}

func (w *Worker) process(task exportTask) {
	w.update(task.id, func(r *ExportRecord) { r.Status = ExportStatusRunning })
	month := w.month(task.id)

	data, filename, err := Export(w.ctx, w.svc, task.sess, month)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("render workbook: %v", err))
		return
	}
	key := ExportKey(task.sess.OwnerID, task.id)
	info, err := w.blobs.Put(w.ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{"month": month, "export_id": task.id},
	})
	if err != nil {
		w.fail(task.id, fmt.Sprintf("store workbook: %v", err))
		return
	}
	url, err := w.blobs.PresignURL(w.ctx, key, blob.SignedURLOptions{})
	if err != nil {
		w.fail(task.id, fmt.Sprintf("sign url: %v", err))
		return
	}
	w.update(task.id, func(r *ExportRecord) {
		now := r.UpdatedAt
		r.Status = ExportStatusSucceeded
		r.Error = ""
		r.Key = key
		r.Filename = filename
		r.SizeBytes = info.Size
		r.URL = url
		r.CompletedAt = &now
	})
	w.logger.Info("export finished", zap.String("export_id", task.id), zap.Int64("size_bytes", info.Size))
}

func (w *Worker) month(id string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if r, ok := w.jobs[id]; ok {
		return r.Month
	}
	return ""
}

func (w *Worker) update(id string, fn func(*ExportRecord)) {
	now := w.now().UTC()
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.jobs[id]; ok {
		r.UpdatedAt = now
		fn(r)
	}
}

func (w *Worker) fail(id, reason string) {
	w.update(id, func(r *ExportRecord) {
		now := r.UpdatedAt
		r.Status = ExportStatusFailed
		r.Error = reason
		r.CompletedAt = &now
	})
	w.logger.Warn("export failed", zap.String("export_id", id), zap.String("reason", reason))
}
