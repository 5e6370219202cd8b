package utils

import (
	"fmt"

	"watchface-scraper/internal/types"
)

// NewRenderer builds the renderer selected by config.Engine
func NewRenderer(config *types.Config, logger types.Logger) (Renderer, error) {
	switch config.Engine {
	case types.EngineChromedp, "":
		return NewBrowserClient(config, logger), nil
	case types.EngineRod:
		return NewRodClient(config, logger), nil
	case types.EngineHTTP:
		return NewHTTPClient(config, logger), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", config.Engine)
	}
}
