package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

type ModelDetail struct {
	Selector  types.Selector `json:"selector"`
	Namespace string         `json:"namespace"`
	Name      string         `json:"name"`
	Version   uint32         `json:"version"`
	Packed    bool           `json:"packed"`
	Schema    types.Schema   `json:"schema"`
}

type GetWorldResponse struct {
	Models []ModelDetail `json:"models"`
}

// GetWorld godoc
//
//	@Summary		Get all registered models and their schemas
//	@Produce		application/json
//	@Success		200	{object}	GetWorldResponse
//	@Router			/world [get]
func GetWorld(registry *worldstate.Registry) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		models, err := registry.Models(ctx.UserContext())
		if err != nil {
			return err
		}
		details := make([]ModelDetail, 0, len(models))
		for _, m := range models {
			details = append(details, ModelDetail{
				Selector:  m.Selector,
				Namespace: m.Namespace,
				Name:      m.Name,
				Version:   m.Version,
				Packed:    m.Packed,
				Schema:    m.Schema,
			})
		}
		return ctx.JSON(GetWorldResponse{Models: details})
	}
}

type PostNamespaceRequest struct {
	Caller types.Address `json:"caller"`
	Name   string        `json:"name"`
}

type PostNamespaceResponse struct {
	Selector types.Selector `json:"selector"`
}

// PostNamespace godoc
//
//	@Summary		Register a namespace
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostNamespaceResponse
//	@Failure		400	{string}	string	"Invalid request parameter"
//	@Router			/world/namespace [post]
func PostNamespace(registry *worldstate.Registry) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostNamespaceRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		selector, err := registry.RegisterNamespace(ctx.UserContext(), req.Caller, req.Name)
		if err != nil {
			return err
		}
		return ctx.JSON(PostNamespaceResponse{Selector: selector})
	}
}

type PostModelRequest struct {
	Caller     types.Address              `json:"caller"`
	Definition worldstate.ModelDefinition `json:"definition"`
}

type PostModelResponse struct {
	Selector types.Selector `json:"selector"`
	Version  uint32         `json:"version"`
}

// PostModel godoc
//
//	@Summary		Register or upgrade a model
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostModelResponse
//	@Failure		400	{string}	string	"Invalid request parameter"
//	@Router			/world/model [post]
func PostModel(registry *worldstate.Registry) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostModelRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		selector, err := registry.RegisterModel(ctx.UserContext(), req.Caller, req.Definition)
		if err != nil {
			return err
		}
		metadata, err := registry.Model(ctx.UserContext(), selector)
		if err != nil {
			return err
		}
		return ctx.JSON(PostModelResponse{Selector: selector, Version: metadata.Version})
	}
}
