package bootstrap

import (
	"go.uber.org/zap"

	"verba/internal/audio"
	"verba/internal/billing"
	"verba/internal/config"
	"verba/internal/ports"
	"verba/internal/providers/hf"
	"verba/internal/providers/supabase"
	"verba/internal/store"
	"verba/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Recorder      *usecase.RecordingController
	Workflow      *usecase.Workflow
	Notes         *store.NotesRepository
	Subscriptions *store.SubscriptionCache
	Billing       *billing.Service
	Auth          ports.AuthGateway
	Config        config.Config
	Logger        *zap.Logger

	blobs ports.BlobStore
}

// Build wires all backend dependencies for the current runtime. The on-disk
// store falling back to memory keeps the app usable on a read-only home.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return Services{}, err
	}

	var blobs ports.BlobStore
	if sqlite, err := store.Open(cfg.Store.Path); err != nil {
		logger.Warn("falling back to in-memory store", zap.Error(err))
		blobs = store.NewMemoryStore()
	} else {
		blobs = sqlite
	}

	recorder := usecase.NewRecordingController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, logger),
		eventSink,
		logger,
		usecase.RecorderConfig{
			Capture: ports.CaptureConfig{
				InputFormat:  cfg.Audio.InputFormat,
				InputDevice:  cfg.Audio.InputDevice,
				OutputFormat: cfg.Audio.OutputFormat,
				SampleRate:   cfg.Audio.SampleRate,
				Channels:     cfg.Audio.Channels,
				ChunkSize:    cfg.Audio.ChunkSize,
			},
			MaxDurationSeconds: cfg.Recording.MaxDurationSeconds,
			PlaybackDir:        cfg.Recording.PlaybackDir,
		},
	)

	hfCfg := hf.Config{
		APIKey:          cfg.HuggingFace.APIKey,
		APIBaseURL:      cfg.HuggingFace.APIBaseURL,
		WhisperModel:    cfg.HuggingFace.WhisperModel,
		GenerationModel: cfg.HuggingFace.GenerationModel,
	}
	workflow := usecase.NewWorkflow(
		hf.NewTranscriber(hfCfg),
		hf.NewGenerator(hfCfg),
		clipboard,
		eventSink,
		logger,
		usecase.WorkflowConfig{
			MaxUploadBytes:    cfg.Workflow.MaxUploadBytes,
			TranscribeTimeout: cfg.HuggingFace.TranscribeTimeout,
			GenerateTimeout:   cfg.HuggingFace.GenerateTimeout,
		},
	)

	return Services{
		Recorder:      recorder,
		Workflow:      workflow,
		Notes:         store.NewNotesRepository(blobs, logger),
		Subscriptions: store.NewSubscriptionCache(blobs, logger),
		Billing:       billing.NewService(blobs, logger, cfg.Billing.TrialDays),
		Auth:          supabase.NewAuth(supabase.Config{URL: cfg.Supabase.URL, AnonKey: cfg.Supabase.AnonKey}),
		Config:        cfg,
		Logger:        logger,
		blobs:         blobs,
	}, nil
}

// Close releases everything the graph owns, in dependency order.
func (s Services) Close() {
	if s.Workflow != nil {
		s.Workflow.Close()
	}
	if s.Recorder != nil {
		s.Recorder.Cleanup()
	}
	if s.blobs != nil {
		_ = s.blobs.Close()
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
}
