package api

import (
	"log/slog"

	"github.com/shaiso/Crucible/internal/blob"
	"github.com/shaiso/Crucible/internal/etl"
	"github.com/shaiso/Crucible/internal/gateway"
	"github.com/shaiso/Crucible/internal/mq"
	"github.com/shaiso/Crucible/internal/notify"
	"github.com/shaiso/Crucible/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	fileRepo       *repo.FileRepo
	taskRepo       *repo.TaskRepo
	annotationRepo *repo.AnnotationRepo
	gateway        *gateway.Gateway
	hub            *notify.Hub
	publisher      *mq.Publisher
	scripts        *etl.ScriptRegistry

	// blobs может быть nil — удалённое хранилище не настроено.
	blobs blob.Store

	// dataDir — управляемое хранилище копий (для upload).
	dataDir string

	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	FileRepo       *repo.FileRepo
	TaskRepo       *repo.TaskRepo
	AnnotationRepo *repo.AnnotationRepo
	Gateway        *gateway.Gateway
	Hub            *notify.Hub
	Publisher      *mq.Publisher
	Scripts        *etl.ScriptRegistry
	Blobs          blob.Store
	DataDir        string
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = etl.DefaultScripts()
	}
	return &Handler{
		fileRepo:       cfg.FileRepo,
		taskRepo:       cfg.TaskRepo,
		annotationRepo: cfg.AnnotationRepo,
		gateway:        cfg.Gateway,
		hub:            cfg.Hub,
		publisher:      cfg.Publisher,
		scripts:        scripts,
		blobs:          cfg.Blobs,
		dataDir:        cfg.DataDir,
		logger:         cfg.Logger,
	}
}
