package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"salon-consult/backend/internal/routine"
	"salon-consult/backend/internal/store"
	"salon-consult/backend/internal/util"
)

func (s *Server) handleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	concern := routine.ParseConcern(req.Concern)
	if concern == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown concern %q", req.Concern))
		return
	}

	classification := s.classifier.Classify(req.Answer, concern)
	if !classification.Classified() {
		// Unclassifiable input is a result, not an error; the wizard
		// re-prompts the client.
		c.JSON(http.StatusOK, ClassifyResponse{Unclassified: true})
		return
	}
	c.JSON(http.StatusOK, ClassifyResponse{
		Band:    string(classification.Band),
		Subtype: classification.Subtype,
	})
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	concern := routine.ParseConcern(req.Concern)
	if concern == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown concern %q", req.Concern))
		return
	}
	skinType := routine.ParseSkinType(req.SkinType)
	if skinType == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown skin type %q", req.SkinType))
		return
	}

	band := routine.ParseBand(req.Band)
	subtypeID := strings.TrimSpace(req.SubtypeID)
	if !band.Valid() && strings.TrimSpace(req.RawAnswer) != "" {
		classification := s.classifier.Classify(req.RawAnswer, concern)
		band = classification.Band
		if subtypeID == "" && classification.Subtype != "" {
			id, err := s.subtypeIDForCode(concern, classification.Subtype)
			if err != nil {
				s.renderError(c, http.StatusInternalServerError, err)
				return
			}
			subtypeID = id
		}
	}
	if !band.Valid() {
		c.JSON(http.StatusOK, RecommendResponse{
			Concern:      string(concern),
			SkinType:     string(skinType),
			Unclassified: true,
		})
		return
	}

	timer := util.StartTimer()
	snap, err := s.db.LoadSnapshot()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	result := routine.ComposeRoutine(routine.ComposeInput{
		Concern:   concern,
		SubtypeID: subtypeID,
		SkinType:  skinType,
		Band:      band,
		Catalogue: routine.NewCatalogue(snap.Products),
		Entries:   snap.Entries,
		Defaults:  snap.Defaults,
		Profile:   req.Profile,
	})
	elapsed := timer.ElapsedMs()

	for _, warning := range result.Warnings {
		logrus.WithFields(logrus.Fields{
			"concern":    warning.Concern,
			"subtype_id": warning.SubtypeID,
			"skin_type":  warning.SkinType,
			"band":       warning.Band,
			"slot":       warning.Slot,
			"product_id": warning.ProductID,
		}).Warn("matrix references missing product")
	}

	consultation := store.Consultation{
		ClientName:         strings.TrimSpace(req.ClientName),
		Concern:            string(concern),
		SubtypeID:          subtypeID,
		SkinType:           string(skinType),
		Band:               string(band),
		Pregnant:           req.Profile.Pregnant,
		OnIsotretinoin:     req.Profile.OnIsotretinoin,
		BarrierCompromised: req.Profile.BarrierCompromised,
		Remarks:            result.Remarks,
		ProcessingTimeMs:   elapsed,
	}
	consultation.SetSlots(result.Slots)
	consultation.SetWarnings(result.Warnings)
	if err := s.db.SaveConsultation(&consultation); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, RecommendResponse{
		ConsultationID:   consultation.ID,
		Concern:          string(concern),
		SubtypeID:        subtypeID,
		SkinType:         string(skinType),
		Band:             string(band),
		Slots:            result.Slots,
		Remarks:          result.Remarks,
		Warnings:         result.Warnings,
		ProcessingTimeMs: elapsed,
	})
}

// subtypeIDForCode maps a classifier subtype code to the reference table id.
// A code with no reference row resolves to the code itself so sparse seed
// data still matches matrix rows keyed the same way.
func (s *Server) subtypeIDForCode(concern routine.Concern, code string) (string, error) {
	rows, err := s.db.ListSubtypes(string(concern))
	if err != nil {
		return "", fmt.Errorf("list subtypes: %w", err)
	}
	for _, row := range rows {
		if strings.EqualFold(row.Code, code) {
			return row.ID, nil
		}
	}
	return code, nil
}

func (s *Server) handleExportCSV(c *gin.Context) {
	rows, _, err := s.db.ListConsultations(0, 0)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("consultations-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	writer := csv.NewWriter(c.Writer)
	header := []string{"id", "client_name", "concern", "subtype_id", "skin_type", "band"}
	for _, slot := range routine.Slots() {
		header = append(header, string(slot)+"_status", string(slot)+"_product")
	}
	header = append(header, "remarks", "created_at")
	if err := writer.Write(header); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	for _, row := range rows {
		dto := ConsultationFromModel(row)
		record := []string{
			strconv.FormatUint(uint64(dto.ID), 10),
			dto.ClientName,
			dto.Concern,
			dto.SubtypeID,
			dto.SkinType,
			dto.Band,
		}
		for _, slot := range routine.Slots() {
			outcome := dto.Slots[slot]
			record = append(record, string(outcome.Status), outcome.ProductID)
		}
		record = append(record, dto.Remarks, dto.CreatedAt.UTC().Format(time.RFC3339))
		if err := writer.Write(record); err != nil {
			logrus.WithError(err).Warn("write consultation export row")
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logrus.WithError(err).Warn("flush consultation export")
	}
}
