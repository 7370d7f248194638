package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hbrandt/coincast/internal/remote"
	"github.com/hbrandt/coincast/internal/sim"
)

// Service is the sync server: it registers simulations, stores their points,
// and relays inserts to websocket viewers.
type Service struct {
	cfg Config
	db  *gorm.DB
	hub *hub
	log *zap.Logger

	upgrader websocket.Upgrader
}

// NewService opens (and migrates) the sqlite database and builds the service.
func NewService(cfg Config, log *zap.Logger) (*Service, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SimulationRecord{}, &SimulationPoint{}); err != nil {
		return nil, err
	}

	return &Service{
		cfg: cfg,
		db:  db,
		hub: newHub(cfg.SubscriberBuffer, log),
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/simulations", s.createSimulation)
		v1.GET("/simulations/:id", s.getSimulation)
		v1.PATCH("/simulations/:id", s.patchSimulation)
		v1.POST("/simulations/:id/points", s.appendPoint)
		v1.GET("/simulations/:id/points", s.listPoints)
	}
	r.GET("/ws/simulations/:id", s.subscribe)
	return r
}

// Run serves until the listener fails.
func (s *Service) Run() error {
	s.log.Info("sync server listening", zap.String("addr", s.cfg.Addr))
	return s.Router().Run(s.cfg.Addr)
}

func (s *Service) createSimulation(c *gin.Context) {
	var d sim.Descriptor
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if d.StartPrice <= 0 || d.TargetPrice <= 0 || d.DurationMs <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start price, target price and duration must be positive"})
		return
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().UnixMilli()
	}

	rec := recordFromDescriptor(uuid.NewString(), d)
	if err := s.db.Create(&rec).Error; err != nil {
		s.log.Error("create simulation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("simulation registered",
		zap.String("id", rec.ID), zap.String("asset", rec.AssetID))
	c.JSON(http.StatusOK, gin.H{"id": rec.ID})
}

func (s *Service) getSimulation(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rec.descriptor())
}

func (s *Service) patchSimulation(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.db.Model(&rec).Update("active", *req.Active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !*req.Active {
		s.hub.broadcast(rec.ID, remote.Event{Type: remote.EventDeactivate})
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) appendPoint(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	var p remote.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Time <= 0 || p.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time and price must be positive"})
		return
	}

	row := SimulationPoint{
		SimulationID: rec.ID,
		Time:         p.Time,
		Price:        p.Price,
		Simulated:    p.Simulated,
	}
	if err := s.db.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.hub.broadcast(rec.ID, remote.Event{Type: remote.EventInsert, Point: &p})
	c.Status(http.StatusNoContent)
}

func (s *Service) listPoints(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	q := s.db.Where("simulation_id = ?", rec.ID)
	if from, err := strconv.ParseInt(c.Query("from"), 10, 64); err == nil {
		q = q.Where("time >= ?", from)
	}
	if to, err := strconv.ParseInt(c.Query("to"), 10, 64); err == nil {
		q = q.Where("time <= ?", to)
	}

	var rows []SimulationPoint
	if err := q.Order("time asc").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pts := make([]remote.Point, len(rows))
	for i, row := range rows {
		pts[i] = row.point()
	}
	c.JSON(http.StatusOK, pts)
}

func (s *Service) subscribe(c *gin.Context) {
	rec, ok := s.lookup(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := s.hub.add(rec.ID, conn)
	s.log.Debug("viewer subscribed", zap.String("simulation", rec.ID))

	// The read loop exists only to notice disconnects; viewers never send.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(rec.ID, sub)
}

func (s *Service) lookup(c *gin.Context) (SimulationRecord, bool) {
	var rec SimulationRecord
	err := s.db.First(&rec, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return SimulationRecord{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return SimulationRecord{}, false
	}
	return rec, true
}
