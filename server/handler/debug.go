package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/invopop/jsonschema"
)

// GetSchemas godoc
//
//	@Summary		Get JSON schemas of every request body the server accepts
//	@Produce		application/json
//	@Success		200	{object}	map[string]jsonschema.Schema
//	@Router			/debug/schemas [get]
func GetSchemas() func(*fiber.Ctx) error {
	schemas := map[string]*jsonschema.Schema{
		"/world/namespace":   jsonschema.Reflect(&PostNamespaceRequest{}),
		"/world/model":       jsonschema.Reflect(&PostModelRequest{}),
		"/entity/set":        jsonschema.Reflect(&PostSetEntityRequest{}),
		"/entity/get":        jsonschema.Reflect(&PostGetEntityRequest{}),
		"/entity/delete":     jsonschema.Reflect(&PostDeleteEntityRequest{}),
		"/entity/member/set": jsonschema.Reflect(&PostSetMemberRequest{}),
		"/entity/member/get": jsonschema.Reflect(&PostGetMemberRequest{}),
	}
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(schemas)
	}
}
