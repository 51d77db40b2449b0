package portfolio

import (
	"log/slog"

	"portfolio/internal/config"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
)

// Services bundles the explorer services built around one directory backend.
type Services struct {
	Filter    *FilterEngine
	Validator *UploadValidator
	Uploads   portfolioSvc.UploadService

	directory  portfolioSvc.DirectoryService
	navOptions []NavigatorOption
	logger     *slog.Logger
}

// SetupServices wires the filter engine, the upload validator and the upload queue
// from the environment and the explorer config.
func SetupServices(
	directory portfolioSvc.DirectoryService,
	cfg *config.Config,
	explorerCfg *config.ExplorerConfig,
	logger *slog.Logger,
) *Services {
	if explorerCfg == nil {
		explorerCfg = config.DefaultExplorerConfig()
	}

	var families FormatFamilies
	if len(explorerCfg.FormatFamilies) > 0 {
		families = FormatFamilies(explorerCfg.FormatFamilies)
	}
	filter := NewFilterEngine(families)

	validator := NewUploadValidator(explorerCfg.AllowedFormats, explorerCfg.ResolveMaxUploadBytes(cfg))
	uploads := NewUploader(directory, validator, cfg.UploadConcurrency, logger)

	logger.Info("explorer services initialized",
		"format_families", len(filter.Families()),
		"allowed_formats", validator.AllowedFormats(),
		"max_upload_bytes", validator.MaxSizeBytes(),
		"upload_concurrency", cfg.UploadConcurrency,
		"history_limit", cfg.HistoryLimit,
	)

	return &Services{
		Filter:    filter,
		Validator: validator,
		Uploads:   uploads,
		directory: directory,
		navOptions: []NavigatorOption{
			WithHistoryLimit(cfg.HistoryLimit),
			WithDefaultCriteria(explorerCfg.DefaultCriteria),
		},
		logger: logger,
	}
}

// NewExplorer creates an idle navigator sharing the services' directory and filter engine.
func (s *Services) NewExplorer() *Navigator {
	return NewNavigator(s.directory, s.Filter, s.logger, s.navOptions...)
}
