package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"salon-consult/backend/internal/routine"
	"salon-consult/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	RulesPath      string
	AllowedOrigins []string
	SilentDB       bool
}

// Server wires HTTP handlers with persistence and the resolution engine.
type Server struct {
	db             *store.Database
	rulesPath      string
	classifier     *routine.Classifier
	allowedOrigins []string
	notifier       *RecomputeNotifier
	jobMu          sync.Mutex
	activeJob      *recomputeJob
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	rulesPath := cfg.RulesPath
	if rulesPath == "" {
		rulesPath = filepath.Join("internal", "routine", "classifier_rules.json")
	}
	classifier, err := routine.NewClassifier(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if err := classifier.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	return &Server{
		db:             db,
		rulesPath:      rulesPath,
		classifier:     classifier,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewRecomputeNotifier(),
	}, nil
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.GET("/products", s.handleListProducts)
		api.POST("/products", s.handleSaveProduct)
		api.PUT("/products/:id", s.handleUpdateProduct)
		api.DELETE("/products/:id", s.handleDeleteProduct)
		api.GET("/subtypes", s.handleListSubtypes)
		api.GET("/matrix", s.handleListMatrix)
		api.POST("/matrix", s.handleSaveMatrix)
		api.DELETE("/matrix/:id", s.handleDeleteMatrix)
		api.GET("/defaults", s.handleListDefaults)
		api.PUT("/defaults", s.handleUpsertDefault)
		api.POST("/classify", s.handleClassify)
		api.POST("/recommend", s.handleRecommend)
		api.GET("/consultations", s.handleListConsultations)
		api.GET("/consultations/:id", s.handleGetConsultation)
		api.GET("/export.csv", s.handleExportCSV)
		api.POST("/recompute", s.handleStartRecompute)
		api.GET("/recompute/status", s.handleRecomputeStatus)
		api.DELETE("/recompute/:jobID", s.handleCancelRecompute)
		api.GET("/recompute/stream", s.handleRecomputeStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	products, err := s.db.CountProducts()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	entries, err := s.db.CountMatrixEntries()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	consultations, err := s.db.CountConsultations()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rules_path":     s.rulesPath,
		"products":       products,
		"matrix_entries": entries,
		"consultations":  consultations,
	})
}

func (s *Server) handleListProducts(c *gin.Context) {
	rows, err := s.db.ListProducts(c.Query("q"))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ProductFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos, "total": len(dtos)})
}

func (s *Server) handleSaveProduct(c *gin.Context) {
	var dto ProductDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(dto.DisplayName) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("display_name required"))
		return
	}
	if strings.TrimSpace(dto.ID) == "" {
		dto.ID = uuid.NewString()
	}
	product := dto.ToModel()
	if err := s.db.SaveProduct(&product); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, ProductFromModel(product))
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.db.GetProduct(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("product %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	var dto ProductDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	// The path id wins; product ids are immutable once referenced.
	dto.ID = id
	product := dto.ToModel()
	if err := s.db.SaveProduct(&product); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, ProductFromModel(product))
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	referenced, err := s.db.ProductReferenced(id)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if referenced {
		s.renderError(c, http.StatusConflict, fmt.Errorf("product %s is referenced by matrix rows or defaults", id))
		return
	}
	if err := s.db.DeleteProduct(id); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleListSubtypes(c *gin.Context) {
	rows, err := s.db.ListSubtypes(c.Query("concern"))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]SubtypeDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, SubtypeFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos, "total": len(dtos)})
}

func (s *Server) handleListMatrix(c *gin.Context) {
	rows, err := s.db.ListMatrixEntries(store.MatrixQuery{
		Concern:  c.Query("concern"),
		SkinType: c.Query("skinType"),
		Band:     c.Query("band"),
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]MatrixEntryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, MatrixEntryFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos, "total": len(dtos)})
}

func (s *Server) handleSaveMatrix(c *gin.Context) {
	var dto MatrixEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if routine.ParseConcern(dto.Concern) == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown concern %q", dto.Concern))
		return
	}
	if routine.ParseSkinType(dto.SkinType) == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown skin type %q", dto.SkinType))
		return
	}
	if routine.ParseBand(dto.Band) == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown band %q", dto.Band))
		return
	}
	if strings.TrimSpace(dto.ID) == "" {
		dto.ID = uuid.NewString()
	}
	entry := dto.ToModel()
	if err := s.db.UpsertMatrixEntry(&entry); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, MatrixEntryFromModel(entry))
}

func (s *Server) handleDeleteMatrix(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.db.DeleteMatrixEntry(id); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleListDefaults(c *gin.Context) {
	rows, err := s.db.ListDefaults(c.Query("skinType"))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]DefaultDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, DefaultFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos, "total": len(dtos)})
}

func (s *Server) handleUpsertDefault(c *gin.Context) {
	var dto DefaultDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	skinType := routine.ParseSkinType(dto.SkinType)
	if skinType == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown skin type %q", dto.SkinType))
		return
	}
	slot := routine.ParseSlot(dto.Slot)
	if slot == "" {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("unknown slot %q", dto.Slot))
		return
	}
	def := store.SkinTypeDefault{
		SkinType:  string(skinType),
		Slot:      string(slot),
		ProductID: strings.TrimSpace(dto.ProductID),
	}
	if err := s.db.UpsertDefault(&def); err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, DefaultFromModel(def))
}

func (s *Server) handleListConsultations(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	rows, total, err := s.db.ListConsultations(page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ConsultationDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ConsultationFromModel(row))
	}
	c.JSON(http.StatusOK, ConsultationsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetConsultation(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	row, err := s.db.GetConsultation(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("consultation %d not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, ConsultationFromModel(*row))
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseUintParam(value string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return uint(parsed), nil
}
