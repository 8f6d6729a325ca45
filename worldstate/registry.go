package worldstate

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/wI2L/jsondiff"

	"github.com/cairn-engine/cairn/codec"
	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
)

// Resource kind words persisted at the resource key.
const (
	resourceUnregistered uint64 = iota
	resourceNamespace
	resourceModel
)

// ModelMetadata is the persisted description of a registered model: its
// stable selector, naming, key fields, and value schema. The schema describes
// only the non-key fields; key fields form the addressing root and are never
// part of the value layout.
type ModelMetadata struct {
	Selector  types.Selector   `json:"selector"`
	Namespace string           `json:"namespace"`
	Name      string           `json:"name"`
	Version   uint32           `json:"version"`
	Packed    bool             `json:"packed"`
	KeyFields []types.Selector `json:"keyFields"`
	Schema    types.Schema     `json:"schema"`
}

// Tag returns the human-readable namespace-name pair of the model.
func (m ModelMetadata) Tag() string {
	return m.Namespace + "-" + m.Name
}

// ModelDefinition is the registration input for a model.
type ModelDefinition struct {
	Namespace string           `json:"namespace"`
	Name      string           `json:"name"`
	Packed    bool             `json:"packed"`
	KeyFields []types.Selector `json:"keyFields"`
	Schema    types.Schema     `json:"schema"`
}

// UpgradePolicy decides whether a model re-registration is a legal schema
// evolution. The legality rules are deliberately pluggable; the engine only
// requires that illegal upgrades are rejected before any metadata is
// replaced.
type UpgradePolicy interface {
	Validate(old, upgraded ModelMetadata) error
}

// Registry assigns stable selectors to namespaces and models, persists model
// metadata, and enforces ownership on registration and upgrade.
type Registry struct {
	dbStorage storage.WordStorage
	perms     *PermissionStore
	policy    UpgradePolicy

	models storage.VolatileStorage[types.Selector, ModelMetadata]
}

func NewRegistry(dbStorage storage.WordStorage, perms *PermissionStore, policy UpgradePolicy) *Registry {
	if policy == nil {
		policy = AppendOnlyUpgradePolicy{}
	}
	return &Registry{
		dbStorage: dbStorage,
		perms:     perms,
		policy:    policy,
		models:    storage.NewMapCache[types.Selector, ModelMetadata](),
	}
}

func (r *Registry) resourceKind(ctx context.Context, selector types.Selector) (uint64, error) {
	w, err := r.dbStorage.GetWord(ctx, storageResourceKey(selector))
	if err != nil {
		return 0, err
	}
	return w.Uint64(), nil
}

func (r *Registry) setResourceKind(ctx context.Context, selector types.Selector, kind uint64) error {
	return r.dbStorage.SetWord(ctx, storageResourceKey(selector), types.NewWord(kind))
}

// RegisterNamespace registers a new namespace resource and makes the caller
// its owner. Namespace selectors are the hash of the namespace name.
func (r *Registry) RegisterNamespace(
	ctx context.Context, caller types.Address, name string,
) (types.Selector, error) {
	if !types.IsValidName(name) {
		return types.Selector{}, eris.Wrapf(types.ErrInvalidName, "namespace %q", name)
	}
	selector := types.NamespaceSelector(name)
	kind, err := r.resourceKind(ctx, selector)
	if err != nil {
		return types.Selector{}, err
	}
	if kind != resourceUnregistered {
		return types.Selector{}, eris.Wrapf(ErrResourceAlreadyRegistered, "namespace %q", name)
	}
	if err := r.setResourceKind(ctx, selector, resourceNamespace); err != nil {
		return types.Selector{}, err
	}
	if err := r.perms.GrantOwner(ctx, selector, caller); err != nil {
		return types.Selector{}, err
	}
	if err := r.appendNamespaceIndex(ctx, name); err != nil {
		return types.Selector{}, err
	}
	log.Info().
		Str("namespace", name).
		Str("selector", selector.Hex()).
		Str("owner", caller.Hex()).
		Msg("namespace registered")
	return selector, nil
}

// RegisterModel registers a model under an existing namespace, or upgrades it
// when the selector is already taken by a model. New registrations require a
// namespace owner/writer grant; upgrades require ownership of the model
// resource itself and must pass the upgrade policy.
func (r *Registry) RegisterModel(
	ctx context.Context, caller types.Address, def ModelDefinition,
) (types.Selector, error) {
	if !types.IsValidName(def.Namespace) {
		return types.Selector{}, eris.Wrapf(types.ErrInvalidName, "namespace %q", def.Namespace)
	}
	if !types.IsValidName(def.Name) {
		return types.Selector{}, eris.Wrapf(types.ErrInvalidName, "model %q", def.Name)
	}
	if err := types.ValidateLayout(def.Schema.Layout); err != nil {
		return types.Selector{}, err
	}
	switch def.Schema.Layout.Kind() {
	case types.LayoutKindFixed, types.LayoutKindStruct:
	default:
		return types.Selector{}, eris.Wrapf(
			ErrUnexpectedLayoutType, "model root layout is %s", def.Schema.Layout.Kind(),
		)
	}
	if def.Packed {
		if _, ok := def.Schema.Layout.FixedSizes(); !ok {
			return types.Selector{}, eris.Wrapf(ErrNotPackable, "model %q", def.Name)
		}
	}

	namespaceSelector := types.NamespaceSelector(def.Namespace)
	nsKind, err := r.resourceKind(ctx, namespaceSelector)
	if err != nil {
		return types.Selector{}, err
	}
	if nsKind != resourceNamespace {
		return types.Selector{}, eris.Wrapf(ErrNamespaceNotFound, "namespace %q", def.Namespace)
	}

	selector := types.SelectorFromNames(def.Namespace, def.Name)
	kind, err := r.resourceKind(ctx, selector)
	if err != nil {
		return types.Selector{}, err
	}

	switch kind {
	case resourceUnregistered:
		canWrite, err := r.perms.CanWrite(ctx, caller, namespaceSelector)
		if err != nil {
			return types.Selector{}, err
		}
		if !canWrite {
			return types.Selector{}, eris.Wrapf(ErrUnauthorized, "caller %s on namespace %q", caller.Hex(), def.Namespace)
		}
		metadata := ModelMetadata{
			Selector:  selector,
			Namespace: def.Namespace,
			Name:      def.Name,
			Version:   1,
			Packed:    def.Packed,
			KeyFields: def.KeyFields,
			Schema:    def.Schema,
		}
		if err := r.storeModel(ctx, metadata); err != nil {
			return types.Selector{}, err
		}
		if err := r.setResourceKind(ctx, selector, resourceModel); err != nil {
			return types.Selector{}, err
		}
		if err := r.perms.GrantOwner(ctx, selector, caller); err != nil {
			return types.Selector{}, err
		}
		logModelEvent(log.Info(), metadata).Msg("model registered")
		return selector, nil

	case resourceModel:
		isOwner, err := r.perms.IsOwner(ctx, caller, selector)
		if err != nil {
			return types.Selector{}, err
		}
		if !isOwner {
			return types.Selector{}, eris.Wrapf(ErrUnauthorized, "caller %s upgrading %s", caller.Hex(), def.Name)
		}
		old, err := r.Model(ctx, selector)
		if err != nil {
			return types.Selector{}, err
		}
		upgraded := ModelMetadata{
			Selector:  selector,
			Namespace: def.Namespace,
			Name:      def.Name,
			Version:   old.Version + 1,
			Packed:    def.Packed,
			KeyFields: def.KeyFields,
			Schema:    def.Schema,
		}
		if err := r.policy.Validate(old, upgraded); err != nil {
			return types.Selector{}, err
		}
		if err := r.storeModel(ctx, upgraded); err != nil {
			return types.Selector{}, err
		}
		logModelEvent(log.Info(), upgraded).Msg("model upgraded")
		return selector, nil
	}
	return types.Selector{}, eris.Wrapf(ErrResourceAlreadyRegistered, "selector %s is not a model", selector.Hex())
}

// Model returns the metadata of a registered model, consulting the volatile
// cache before the persistent store.
func (r *Registry) Model(ctx context.Context, selector types.Selector) (ModelMetadata, error) {
	if metadata, err := r.models.Get(selector); err == nil {
		return metadata, nil
	}
	bz, err := r.dbStorage.GetBytes(ctx, storageModelMetadataKey(selector))
	if err != nil {
		if eris.Is(eris.Cause(err), storage.ErrNoValue) {
			return ModelMetadata{}, eris.Wrapf(ErrModelNotFound, "selector %s", selector.Hex())
		}
		return ModelMetadata{}, err
	}
	metadata, err := codec.Decode[ModelMetadata](bz)
	if err != nil {
		return ModelMetadata{}, err
	}
	if err := r.models.Set(selector, metadata); err != nil {
		return ModelMetadata{}, err
	}
	return metadata, nil
}

// Models returns the metadata of every registered model.
func (r *Registry) Models(ctx context.Context) ([]ModelMetadata, error) {
	selectors, err := r.modelIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModelMetadata, 0, len(selectors))
	for _, selector := range selectors {
		metadata, err := r.Model(ctx, selector)
		if err != nil {
			return nil, err
		}
		out = append(out, metadata)
	}
	return out, nil
}

func (r *Registry) storeModel(ctx context.Context, metadata ModelMetadata) error {
	bz, err := codec.Encode(metadata)
	if err != nil {
		return err
	}
	if err := r.dbStorage.SetBytes(ctx, storageModelMetadataKey(metadata.Selector), bz); err != nil {
		return err
	}
	if metadata.Version == 1 {
		if err := r.appendModelIndex(ctx, metadata.Selector); err != nil {
			return err
		}
	}
	return r.models.Set(metadata.Selector, metadata)
}

func (r *Registry) modelIndex(ctx context.Context) ([]types.Selector, error) {
	bz, err := r.dbStorage.GetBytes(ctx, storageModelIndexKey())
	if err != nil {
		if eris.Is(eris.Cause(err), storage.ErrNoValue) {
			return nil, nil
		}
		return nil, err
	}
	return codec.Decode[[]types.Selector](bz)
}

// Namespaces returns the names of every registered namespace.
func (r *Registry) Namespaces(ctx context.Context) ([]string, error) {
	bz, err := r.dbStorage.GetBytes(ctx, storageNamespaceIndexKey())
	if err != nil {
		if eris.Is(eris.Cause(err), storage.ErrNoValue) {
			return nil, nil
		}
		return nil, err
	}
	return codec.Decode[[]string](bz)
}

func (r *Registry) appendNamespaceIndex(ctx context.Context, name string) error {
	index, err := r.Namespaces(ctx)
	if err != nil {
		return err
	}
	bz, err := codec.Encode(append(index, name))
	if err != nil {
		return err
	}
	return r.dbStorage.SetBytes(ctx, storageNamespaceIndexKey(), bz)
}

func (r *Registry) appendModelIndex(ctx context.Context, selector types.Selector) error {
	index, err := r.modelIndex(ctx)
	if err != nil {
		return err
	}
	bz, err := codec.Encode(append(index, selector))
	if err != nil {
		return err
	}
	return r.dbStorage.SetBytes(ctx, storageModelIndexKey(), bz)
}

var _ UpgradePolicy = AppendOnlyUpgradePolicy{}

// AppendOnlyUpgradePolicy is the default schema evolution rule: members may
// be appended, but existing members may not be removed, reordered, or change
// type; the packed flag and key fields are frozen. It diffs the JSON forms of
// the two schemas and rejects anything that is not a pure addition.
type AppendOnlyUpgradePolicy struct{}

func (AppendOnlyUpgradePolicy) Validate(old, upgraded ModelMetadata) error {
	if old.Packed != upgraded.Packed {
		return eris.Wrap(ErrIncompatibleUpgrade, "packed flag cannot change")
	}
	if len(old.KeyFields) != len(upgraded.KeyFields) {
		return eris.Wrap(ErrIncompatibleUpgrade, "key fields cannot change")
	}
	for i, k := range old.KeyFields {
		if k != upgraded.KeyFields[i] {
			return eris.Wrap(ErrIncompatibleUpgrade, "key fields cannot change")
		}
	}

	oldJSON, err := codec.Encode(old.Schema)
	if err != nil {
		return err
	}
	newJSON, err := codec.Encode(upgraded.Schema)
	if err != nil {
		return err
	}
	patch, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return eris.Wrap(err, "")
	}
	for _, op := range patch {
		if op.Type != jsondiff.OperationAdd {
			return eris.Wrapf(ErrIncompatibleUpgrade, "%s at %s", op.Type, op.Path)
		}
	}
	return nil
}
