package worldstate

import (
	"context"

	"github.com/cairn-engine/cairn/storage"
	"github.com/cairn-engine/cairn/types"
)

// AccessControl is the only thing the engine needs from the permission
// system: a single yes/no answer per (caller, resource) pair. The engine
// consults it once, before any substrate mutation; a negative answer aborts
// the whole operation.
type AccessControl interface {
	CanWrite(ctx context.Context, caller types.Address, resource types.Selector) (bool, error)
}

// Grant bits stored per (resource, caller). Owner implies writer.
const (
	permWriter uint64 = 1 << 0
	permOwner  uint64 = 1 << 1
)

var _ AccessControl = &PermissionStore{}

// PermissionStore persists owner/writer grants in the word store. Owners may
// upgrade a resource and manage its grants; writers may mutate entities of
// the resource.
type PermissionStore struct {
	dbStorage storage.WordStorage
}

func NewPermissionStore(dbStorage storage.WordStorage) *PermissionStore {
	return &PermissionStore{dbStorage: dbStorage}
}

func (p *PermissionStore) grants(ctx context.Context, resource types.Selector, caller types.Address) (uint64, error) {
	w, err := p.dbStorage.GetWord(ctx, storagePermissionKey(resource, caller))
	if err != nil {
		return 0, err
	}
	return w.Uint64(), nil
}

func (p *PermissionStore) setGrants(
	ctx context.Context, resource types.Selector, caller types.Address, bits uint64,
) error {
	return p.dbStorage.SetWord(ctx, storagePermissionKey(resource, caller), types.NewWord(bits))
}

func (p *PermissionStore) CanWrite(
	ctx context.Context, caller types.Address, resource types.Selector,
) (bool, error) {
	bits, err := p.grants(ctx, resource, caller)
	if err != nil {
		return false, err
	}
	return bits&(permWriter|permOwner) != 0, nil
}

func (p *PermissionStore) IsOwner(
	ctx context.Context, caller types.Address, resource types.Selector,
) (bool, error) {
	bits, err := p.grants(ctx, resource, caller)
	if err != nil {
		return false, err
	}
	return bits&permOwner != 0, nil
}

func (p *PermissionStore) IsWriter(
	ctx context.Context, caller types.Address, resource types.Selector,
) (bool, error) {
	bits, err := p.grants(ctx, resource, caller)
	if err != nil {
		return false, err
	}
	return bits&permWriter != 0, nil
}

func (p *PermissionStore) GrantOwner(ctx context.Context, resource types.Selector, to types.Address) error {
	bits, err := p.grants(ctx, resource, to)
	if err != nil {
		return err
	}
	return p.setGrants(ctx, resource, to, bits|permOwner)
}

func (p *PermissionStore) GrantWriter(ctx context.Context, resource types.Selector, to types.Address) error {
	bits, err := p.grants(ctx, resource, to)
	if err != nil {
		return err
	}
	return p.setGrants(ctx, resource, to, bits|permWriter)
}

func (p *PermissionStore) RevokeOwner(ctx context.Context, resource types.Selector, from types.Address) error {
	bits, err := p.grants(ctx, resource, from)
	if err != nil {
		return err
	}
	return p.setGrants(ctx, resource, from, bits&^permOwner)
}

func (p *PermissionStore) RevokeWriter(ctx context.Context, resource types.Selector, from types.Address) error {
	bits, err := p.grants(ctx, resource, from)
	if err != nil {
		return err
	}
	return p.setGrants(ctx, resource, from, bits&^permWriter)
}

// AllowAll is an AccessControl that approves every write. It backs worlds
// started with authorization disabled (local development, tests).
type AllowAll struct{}

func (AllowAll) CanWrite(context.Context, types.Address, types.Selector) (bool, error) {
	return true, nil
}
