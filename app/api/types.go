package api

import (
	"github.com/lysyi3m/crowd-list/app/database"
	"github.com/lysyi3m/crowd-list/app/feed"
	"github.com/lysyi3m/crowd-list/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, offerings []database.StoredOffering) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	configCache  *feed.ConfigCache
	reader       database.OfferingReader
	pipeline     *tasks.Pipeline
	generator    GeneratorInterface
	defaultWatch string
	version      string
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)
