package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"salon-consult/backend/internal/routine"
	"salon-consult/backend/internal/store"
)

const recomputePageSize = 200

// recomputeJob tracks the state of a running consultation recompute.
type recomputeJob struct {
	id        string
	cancel    context.CancelFunc
	startedAt time.Time
	total     int64
}

// StartRecomputeResponse describes the asynchronous recompute kickoff payload.
type StartRecomputeResponse struct {
	JobID     string    `json:"job_id"`
	Total     int64     `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// handleStartRecompute re-resolves every stored consultation against the
// current matrix, catalogue, and defaults. Staff run this after editing the
// matrix so saved routines reflect the new rules.
func (s *Server) handleStartRecompute(c *gin.Context) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob != nil {
		s.renderError(c, http.StatusConflict, errors.New("recompute already running"))
		return
	}

	total, err := s.db.CountConsultations()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &recomputeJob{
		id:        uuid.NewString(),
		cancel:    cancel,
		startedAt: time.Now().UTC(),
		total:     total,
	}
	s.activeJob = job
	go s.runRecompute(ctx, job)

	c.JSON(http.StatusOK, StartRecomputeResponse{
		JobID:     job.id,
		Total:     job.total,
		StartedAt: job.startedAt,
	})
}

func (s *Server) handleRecomputeStatus(c *gin.Context) {
	s.jobMu.Lock()
	job := s.activeJob
	s.jobMu.Unlock()

	if job == nil {
		if last := s.notifier.LastStatus(); last != nil {
			c.JSON(http.StatusOK, last)
			return
		}
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"running":    true,
		"job_id":     job.id,
		"total":      job.total,
		"started_at": job.startedAt,
	})
}

func (s *Server) handleCancelRecompute(c *gin.Context) {
	jobID := c.Param("jobID")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob == nil || s.activeJob.id != jobID {
		s.renderError(c, http.StatusNotFound, errors.New("no matching recompute job"))
		return
	}
	s.activeJob.cancel()
	c.JSON(http.StatusOK, gin.H{"cancelled": jobID})
}

func (s *Server) runRecompute(ctx context.Context, job *recomputeJob) {
	defer func() {
		s.jobMu.Lock()
		s.activeJob = nil
		s.jobMu.Unlock()
	}()

	snap, err := s.db.LoadSnapshot()
	if err != nil {
		logrus.WithError(err).Error("recompute: load snapshot")
		s.notifier.Broadcast(RecomputeEvent{Type: "error", JobID: job.id, Message: err.Error()})
		return
	}
	catalogue := routine.NewCatalogue(snap.Products)

	s.notifier.Broadcast(RecomputeEvent{Type: "started", JobID: job.id, Total: job.total})

	processed := 0
	for offset := 0; ; offset += recomputePageSize {
		select {
		case <-ctx.Done():
			logrus.WithField("job_id", job.id).Info("recompute cancelled")
			s.notifier.Broadcast(RecomputeEvent{Type: "cancelled", JobID: job.id, Processed: processed, Total: job.total})
			return
		default:
		}

		rows, _, err := s.db.ListConsultations(offset, recomputePageSize)
		if err != nil {
			logrus.WithError(err).Error("recompute: list consultations")
			s.notifier.Broadcast(RecomputeEvent{Type: "error", JobID: job.id, Message: err.Error()})
			return
		}
		if len(rows) == 0 {
			break
		}

		for i := range rows {
			if err := s.recomputeConsultation(&rows[i], catalogue, snap); err != nil {
				logrus.WithError(err).WithField("consultation_id", rows[i].ID).Warn("recompute consultation")
			}
			processed++
		}
		s.notifier.Broadcast(RecomputeEvent{Type: "progress", JobID: job.id, Processed: processed, Total: job.total})
	}

	logrus.WithFields(logrus.Fields{
		"job_id":    job.id,
		"processed": processed,
	}).Info("recompute completed")
	s.notifier.Broadcast(RecomputeEvent{Type: "completed", JobID: job.id, Processed: processed, Total: job.total})
}

func (s *Server) recomputeConsultation(row *store.Consultation, catalogue *routine.Catalogue, snap *store.Snapshot) error {
	concern := routine.ParseConcern(row.Concern)
	skinType := routine.ParseSkinType(row.SkinType)
	band := routine.ParseBand(row.Band)
	if concern == "" || skinType == "" || !band.Valid() {
		// Rows with unparsable classification are left untouched.
		return nil
	}

	result := routine.ComposeRoutine(routine.ComposeInput{
		Concern:   concern,
		SubtypeID: row.SubtypeID,
		SkinType:  skinType,
		Band:      band,
		Catalogue: catalogue,
		Entries:   snap.Entries,
		Defaults:  snap.Defaults,
		Profile: routine.SafetyProfile{
			Pregnant:           row.Pregnant,
			OnIsotretinoin:     row.OnIsotretinoin,
			BarrierCompromised: row.BarrierCompromised,
		},
	})

	row.Remarks = result.Remarks
	row.SetSlots(result.Slots)
	row.SetWarnings(result.Warnings)
	return s.db.MarkConsultationRecomputed(row)
}
