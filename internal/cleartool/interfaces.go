package cleartool

import "context"

// Executor is the set of version-control operations the build needs. Every
// call blocks until the external tool finishes or ctx is cancelled.
type Executor interface {
	CreateView(ctx context.Context, v View, storageLocation string, extraParams []string) error
	DestroyView(ctx context.Context, v View) error
	StartView(ctx context.Context, v View) error
	UpdateView(ctx context.Context, v View) error

	GetSpec(ctx context.Context, v View) (string, error)
	SetSpec(ctx context.Context, v View, spec string) error
	SyncToStream(ctx context.Context, v View) error

	// GetRegistrationInfo looks up a view tag. A tag whose host cannot be
	// reached is reported as found together with an error wrapping
	// ErrHostUnreachable.
	GetRegistrationInfo(ctx context.Context, tag string) (*View, bool, error)
	// FindViewByUUID looks up the registered view with the given uuid, as
	// found in a snapshot folder's identity marker.
	FindViewByUUID(ctx context.Context, uuid string) (*View, bool, error)
	LocalFolderExists(ctx context.Context, path string) (bool, error)
	RemoveLocalFolder(ctx context.Context, path string) error
	GetLocalIdentityMarker(ctx context.Context, path string) (string, error)

	QueryLog(ctx context.Context, q LogQuery) (string, error)
	GetStreamBinding(ctx context.Context, v View) (string, error)
	HasPendingLocalEdits(ctx context.Context, branch string, v View, paths []string) (bool, error)
	DescribeActivity(ctx context.Context, name string) (ActivityInfo, error)
}

// Compile-time interface conformance checks.
var (
	_ Executor = (*Tool)(nil)
	_ Executor = (*FakeServer)(nil)
)
