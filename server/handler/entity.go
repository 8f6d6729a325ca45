package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cairn-engine/cairn/types"
	"github.com/cairn-engine/cairn/worldstate"
)

// ModelRef addresses a model by namespace and name; the selector is derived
// server side.
type ModelRef struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

func (r ModelRef) selector() types.Selector {
	return types.SelectorFromNames(r.Namespace, r.Name)
}

type PostSetEntityRequest struct {
	Caller types.Address `json:"caller"`
	Model  ModelRef      `json:"model"`
	Keys   []types.Word  `json:"keys"`
	Values []types.Word  `json:"values"`
}

type PostSetEntityResponse struct {
	Entity types.Key `json:"entity"`
}

// PostSetEntity godoc
//
//	@Summary		Write a full entity record
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostSetEntityResponse
//	@Failure		400	{string}	string	"Invalid request parameter"
//	@Router			/entity/set [post]
func PostSetEntity(manager *worldstate.StateManager) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostSetEntityRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		model := req.Model.selector()
		if err := manager.SetEntity(ctx.UserContext(), req.Caller, model, req.Keys, req.Values, nil); err != nil {
			return err
		}
		return ctx.JSON(PostSetEntityResponse{Entity: worldstate.EntityIDFromKeys(req.Keys)})
	}
}

type PostGetEntityRequest struct {
	Model ModelRef     `json:"model"`
	Keys  []types.Word `json:"keys"`
}

type PostGetEntityResponse struct {
	Entity types.Key    `json:"entity"`
	Values []types.Word `json:"values"`
}

// PostGetEntity godoc
//
//	@Summary		Read a full entity record
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostGetEntityResponse
//	@Failure		404	{string}	string	"Model not found"
//	@Router			/entity/get [post]
func PostGetEntity(manager *worldstate.StateManager) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostGetEntityRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		values, err := manager.Entity(ctx.UserContext(), req.Model.selector(), req.Keys, nil)
		if err != nil {
			return err
		}
		return ctx.JSON(PostGetEntityResponse{
			Entity: worldstate.EntityIDFromKeys(req.Keys),
			Values: values,
		})
	}
}

type PostDeleteEntityRequest struct {
	Caller types.Address `json:"caller"`
	Model  ModelRef      `json:"model"`
	Keys   []types.Word  `json:"keys"`
}

type PostDeleteEntityResponse struct {
	Entity types.Key `json:"entity"`
}

// PostDeleteEntity godoc
//
//	@Summary		Zero out an entity record
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostDeleteEntityResponse
//	@Failure		403	{string}	string	"Caller lacks a write grant"
//	@Router			/entity/delete [post]
func PostDeleteEntity(manager *worldstate.StateManager) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostDeleteEntityRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		model := req.Model.selector()
		if err := manager.DeleteEntity(ctx.UserContext(), req.Caller, model, req.Keys, nil); err != nil {
			return err
		}
		return ctx.JSON(PostDeleteEntityResponse{Entity: worldstate.EntityIDFromKeys(req.Keys)})
	}
}

type PostSetMemberRequest struct {
	Caller types.Address `json:"caller"`
	Model  ModelRef      `json:"model"`
	Keys   []types.Word  `json:"keys"`
	Member string        `json:"member"`
	Values []types.Word  `json:"values"`
}

// PostSetMember godoc
//
//	@Summary		Write a single member of an entity record
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostSetEntityResponse
//	@Failure		400	{string}	string	"Invalid request parameter"
//	@Router			/entity/member/set [post]
func PostSetMember(manager *worldstate.StateManager) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostSetMemberRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		id := worldstate.EntityIDFromKeys(req.Keys)
		member := types.FieldSelector(req.Member)
		if err := manager.SetMember(ctx.UserContext(), req.Caller, req.Model.selector(), id, member, req.Values); err != nil {
			return err
		}
		return ctx.JSON(PostSetEntityResponse{Entity: id})
	}
}

type PostGetMemberRequest struct {
	Model  ModelRef     `json:"model"`
	Keys   []types.Word `json:"keys"`
	Member string       `json:"member"`
}

// PostGetMember godoc
//
//	@Summary		Read a single member of an entity record
//	@Accept			application/json
//	@Produce		application/json
//	@Success		200	{object}	PostGetEntityResponse
//	@Failure		400	{string}	string	"Unknown member"
//	@Router			/entity/member/get [post]
func PostGetMember(manager *worldstate.StateManager) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		req := new(PostGetMemberRequest)
		if err := ctx.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request body: "+err.Error())
		}
		id := worldstate.EntityIDFromKeys(req.Keys)
		values, err := manager.Member(ctx.UserContext(), req.Model.selector(), id, types.FieldSelector(req.Member))
		if err != nil {
			return err
		}
		return ctx.JSON(PostGetEntityResponse{Entity: id, Values: values})
	}
}
