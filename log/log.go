package log

import (
	"sort"

	"github.com/rs/zerolog"
)

// ModelInfo is the slice of a registered model that log events carry.
type ModelInfo struct {
	Selector  string
	Namespace string
	Name      string
	Version   uint32
	Packed    bool
}

// Loggable is anything that can enumerate its registered namespaces and
// models. The registry satisfies it.
type Loggable interface {
	RegisteredNamespaces() []string
	RegisteredModels() []ModelInfo
}

func loadModelIntoArrayLogger(model ModelInfo, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Str("selector", model.Selector)
	dictLogger = dictLogger.Str("namespace", model.Namespace)
	dictLogger = dictLogger.Str("name", model.Name)
	dictLogger = dictLogger.Uint32("version", model.Version)
	dictLogger = dictLogger.Bool("packed", model.Packed)
	return arrayLogger.Dict(dictLogger)
}

func loadModelsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	models := target.RegisteredModels()
	sort.Slice(models, func(i, j int) bool {
		if models[i].Namespace != models[j].Namespace {
			return models[i].Namespace < models[j].Namespace
		}
		return models[i].Name < models[j].Name
	})
	zeroLoggerEvent.Int("total_models", len(models))
	arrayLogger := zerolog.Arr()
	for _, model := range models {
		arrayLogger = loadModelIntoArrayLogger(model, arrayLogger)
	}
	return zeroLoggerEvent.Array("models", arrayLogger)
}

func loadNamespacesToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	namespaces := target.RegisteredNamespaces()
	sort.Strings(namespaces)
	zeroLoggerEvent.Int("total_namespaces", len(namespaces))
	arrayLogger := zerolog.Arr()
	for _, ns := range namespaces {
		arrayLogger = arrayLogger.Str(ns)
	}
	return zeroLoggerEvent.Array("namespaces", arrayLogger)
}

// Models logs all models registered with the target.
func Models(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadModelsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// World logs everything about the world: namespaces and models.
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadNamespacesToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadModelsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Model logs one model's registration info.
func Model(logger *zerolog.Logger, level zerolog.Level, model ModelInfo) {
	zeroLoggerEvent := logger.WithLevel(level)
	arrayLogger := loadModelIntoArrayLogger(model, zerolog.Arr())
	zeroLoggerEvent.Array("models", arrayLogger).Send()
}

// CreateRequestLogger creates a sub logger with the entry {"request_id": id}.
func CreateRequestLogger(logger *zerolog.Logger, requestID string) *zerolog.Logger {
	newLogger := logger.With().Str("request_id", requestID).Logger()
	return &newLogger
}
