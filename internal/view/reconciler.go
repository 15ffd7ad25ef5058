package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/masmgr/ccbuild-go/internal/cleartool"
	"github.com/masmgr/ccbuild-go/internal/configspec"
)

// Options configures a Reconciler.
type Options struct {
	// Now supplies the freeze time when Config.FreezeTime is zero.
	Now func() time.Time
}

// Reconciler converges a named view to a desired Config. The four view
// flavours (snapshot or live, plain or stream-tracking) share one state
// machine.
type Reconciler struct {
	exec cleartool.Executor
	now  func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(exec cleartool.Executor, opts Options) *Reconciler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{exec: exec, now: now}
}

// Reconcile brings the view named by cfg.Tag into the desired state.
func (r *Reconciler) Reconcile(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	registered, found, err := r.lookup(ctx, cfg.Tag)
	if err != nil {
		return Result{}, err
	}

	desired := false
	if found {
		if registered.Live != cfg.Live && !cfg.UpdateInPlace {
			return Result{}, &ReconcileError{
				Tag:    cfg.Tag,
				Reason: fmt.Sprintf("registered as %s view, wanted %s", registered.Kind(), cfg.View().Kind()),
				Err:    ErrConflictingRegistration,
			}
		}
		desired, err = r.isDesiredView(ctx, cfg, registered)
		if err != nil {
			return Result{}, err
		}
	}

	var result Result
	v := cfg.View()
	if desired && cfg.UpdateInPlace {
		v.UUID = registered.UUID
		log.Info().Str("tag", cfg.Tag).Str("kind", v.Kind()).Msg("Updating existing view")
		result.SpecInstalled, err = r.refresh(ctx, cfg, v)
	} else {
		log.Info().Str("tag", cfg.Tag).Str("kind", v.Kind()).Bool("registered", found).Msg("Creating view")
		result.Recreated = true
		result.SpecInstalled, err = r.rebuild(ctx, cfg, v, found)
	}
	if err != nil {
		return Result{}, err
	}

	installed, err := r.exec.GetSpec(ctx, v)
	if err != nil {
		return Result{}, fmt.Errorf("read config spec of %s: %w", cfg.Tag, err)
	}
	original := installed
	if keepsFrozenRules(cfg) {
		original = configspec.New(installed).RemoveTimeFreeze().String()
	}
	result.OriginalSpec = original

	if cfg.Live && cfg.FreezeLiveViews {
		result.Frozen, err = r.freeze(ctx, cfg, v, installed, original)
		if err != nil {
			return Result{}, err
		}
	}

	final, found, err := r.lookup(ctx, cfg.Tag)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("view %s is not registered after reconciliation", cfg.Tag)
	}
	result.View = v
	result.View.UUID = final.UUID
	result.View.Host = final.Host
	return result, nil
}

// lookup queries the registration of tag. An unreachable host is fatal.
func (r *Reconciler) lookup(ctx context.Context, tag string) (*cleartool.View, bool, error) {
	registered, found, err := r.exec.GetRegistrationInfo(ctx, tag)
	if err != nil {
		if errors.Is(err, cleartool.ErrHostUnreachable) {
			return nil, false, &ReconcileError{
				Tag:    tag,
				Reason: "resolve the registration manually",
				Err:    fmt.Errorf("%w: %w", ErrAmbiguousView, err),
			}
		}
		return nil, false, fmt.Errorf("look up view %s: %w", tag, err)
	}
	return registered, found, nil
}

// isDesiredView reports whether the registered view is the one cfg describes.
func (r *Reconciler) isDesiredView(ctx context.Context, cfg Config, registered *cleartool.View) (bool, error) {
	if registered.Live != cfg.Live {
		log.Debug().Str("tag", cfg.Tag).Msg("Registered view has a different kind")
		return false, nil
	}

	if !cfg.Live {
		exists, err := r.exec.LocalFolderExists(ctx, cfg.LocalPath)
		if err != nil {
			return false, fmt.Errorf("inspect %s: %w", cfg.LocalPath, err)
		}
		if !exists {
			log.Debug().Str("tag", cfg.Tag).Str("path", cfg.LocalPath).Msg("Snapshot folder is missing")
			return false, nil
		}
		marker, err := r.exec.GetLocalIdentityMarker(ctx, cfg.LocalPath)
		if err != nil {
			if errors.Is(err, cleartool.ErrNoIdentityMarker) {
				log.Debug().Str("tag", cfg.Tag).Str("path", cfg.LocalPath).Msg("Snapshot folder has no view marker")
				return false, nil
			}
			return false, fmt.Errorf("read view marker in %s: %w", cfg.LocalPath, err)
		}
		if marker != registered.UUID {
			log.Debug().
				Str("tag", cfg.Tag).
				Str("local", marker).
				Str("registered", registered.UUID).
				Msg("Snapshot folder belongs to another view")
			return false, nil
		}
	}

	if cfg.Stream != "" {
		bound, err := r.exec.GetStreamBinding(ctx, *registered)
		if err != nil {
			return false, fmt.Errorf("read stream of %s: %w", cfg.Tag, err)
		}
		if !sameStream(bound, cfg.Stream) {
			log.Debug().Str("tag", cfg.Tag).Str("bound", bound).Str("wanted", cfg.Stream).Msg("View is bound to another stream")
			return false, nil
		}
	}
	return true, nil
}

// refresh updates an existing view and reports whether a spec was installed.
func (r *Reconciler) refresh(ctx context.Context, cfg Config, v cleartool.View) (bool, error) {
	if cfg.Live {
		if err := r.exec.StartView(ctx, v); err != nil {
			return false, fmt.Errorf("start view %s: %w", cfg.Tag, err)
		}
	}

	if cfg.Stream != "" {
		if err := r.exec.SyncToStream(ctx, v); err != nil {
			return false, fmt.Errorf("synchronize %s with %s: %w", cfg.Tag, cfg.Stream, err)
		}
		if cfg.Live {
			return false, nil
		}
		current, err := r.currentSpec(ctx, v)
		if err != nil {
			return false, err
		}
		if !current.LoadRulesDiffer(cfg.LoadRules) {
			return false, nil
		}
		return true, r.install(ctx, v, current, current.ReplaceLoadRules(cfg.LoadRules, cfg.Windows))
	}

	current, err := r.currentSpec(ctx, v)
	if err != nil {
		return false, err
	}
	base := current
	if keepsFrozenRules(cfg) {
		base = current.RemoveTimeFreeze()
	}
	want := desiredSpec(cfg, base)
	if base.Equals(want) {
		if !cfg.Live {
			if err := r.exec.UpdateView(ctx, v); err != nil {
				return false, fmt.Errorf("update view %s: %w", cfg.Tag, err)
			}
		}
		return false, nil
	}
	return true, r.install(ctx, v, current, want)
}

// rebuild destroys whatever holds the tag or the folder and creates the view
// afresh.
func (r *Reconciler) rebuild(ctx context.Context, cfg Config, v cleartool.View, registered bool) (bool, error) {
	if !cfg.Live {
		if err := r.checkFolderOwner(ctx, cfg); err != nil {
			return false, err
		}
	}

	if registered {
		// The registry is shared, so the earlier answer may be stale.
		existing, found, err := r.lookup(ctx, cfg.Tag)
		if err != nil {
			return false, err
		}
		if found {
			log.Info().Str("tag", cfg.Tag).Str("uuid", existing.UUID).Msg("Removing existing view")
			if err := r.exec.DestroyView(ctx, *existing); err != nil {
				return false, fmt.Errorf("remove view %s: %w", cfg.Tag, err)
			}
		}
	}

	if !cfg.Live {
		exists, err := r.exec.LocalFolderExists(ctx, cfg.LocalPath)
		if err != nil {
			return false, fmt.Errorf("inspect %s: %w", cfg.LocalPath, err)
		}
		if exists {
			log.Info().Str("path", cfg.LocalPath).Msg("Removing stale snapshot folder")
			if err := r.exec.RemoveLocalFolder(ctx, cfg.LocalPath); err != nil {
				return false, fmt.Errorf("remove %s: %w", cfg.LocalPath, err)
			}
		}
	}

	params, err := cleartool.SplitParams(cfg.ExtraParams)
	if err != nil {
		return false, fmt.Errorf("view parameters: %w", err)
	}
	if err := r.exec.CreateView(ctx, v, cfg.StorageLocation, params); err != nil {
		return false, fmt.Errorf("create view %s: %w", cfg.Tag, err)
	}
	if cfg.Live {
		if err := r.exec.StartView(ctx, v); err != nil {
			return false, fmt.Errorf("start view %s: %w", cfg.Tag, err)
		}
	}

	if cfg.Stream != "" {
		if cfg.Live || len(cfg.LoadRules) == 0 {
			return false, nil
		}
		current, err := r.currentSpec(ctx, v)
		if err != nil {
			return false, err
		}
		return true, r.install(ctx, v, current, current.ReplaceLoadRules(cfg.LoadRules, cfg.Windows))
	}

	var current configspec.ConfigSpec
	if configspec.New(cfg.ConfigSpec).IsEmpty() {
		if current, err = r.currentSpec(ctx, v); err != nil {
			return false, err
		}
	}
	want := desiredSpec(cfg, current)
	if err := r.exec.SetSpec(ctx, v, want.String()); err != nil {
		return false, fmt.Errorf("set config spec of %s: %w", cfg.Tag, err)
	}
	return true, nil
}

// checkFolderOwner fails when the snapshot folder holds a view registered
// under another tag. Folders without a marker or with the marker of an
// unregistered view may be removed.
func (r *Reconciler) checkFolderOwner(ctx context.Context, cfg Config) error {
	exists, err := r.exec.LocalFolderExists(ctx, cfg.LocalPath)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", cfg.LocalPath, err)
	}
	if !exists {
		return nil
	}
	marker, err := r.exec.GetLocalIdentityMarker(ctx, cfg.LocalPath)
	if errors.Is(err, cleartool.ErrNoIdentityMarker) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read view marker in %s: %w", cfg.LocalPath, err)
	}

	owner, found, err := r.exec.FindViewByUUID(ctx, marker)
	if err != nil {
		return &ReconcileError{
			Tag:    cfg.Tag,
			Reason: fmt.Sprintf("cannot tell who owns %s", cfg.LocalPath),
			Err:    fmt.Errorf("%w: %w", ErrAmbiguousView, err),
		}
	}
	if found && owner.Tag != cfg.Tag {
		return &ReconcileError{
			Tag:    cfg.Tag,
			Reason: fmt.Sprintf("%s holds view %s", cfg.LocalPath, owner.Tag),
			Err:    ErrConflictingRegistration,
		}
	}
	return nil
}

// freeze pins the LATEST rules of a live view's original spec and reports
// whether the installed spec changed.
func (r *Reconciler) freeze(ctx context.Context, cfg Config, v cleartool.View, installed, original string) (bool, error) {
	at := cfg.FreezeTime
	if at.IsZero() {
		at = r.now()
	}
	frozen := configspec.New(original).AddTimeFreeze(at)
	if frozen.String() == installed {
		return false, nil
	}
	log.Info().Str("tag", cfg.Tag).Str("freeze_time", configspec.FormatTime(at)).Msg("Freezing view")
	if err := r.exec.SetSpec(ctx, v, frozen.String()); err != nil {
		return false, fmt.Errorf("freeze config spec of %s: %w", cfg.Tag, err)
	}
	return true, nil
}

func (r *Reconciler) currentSpec(ctx context.Context, v cleartool.View) (configspec.ConfigSpec, error) {
	raw, err := r.exec.GetSpec(ctx, v)
	if err != nil {
		return configspec.ConfigSpec{}, fmt.Errorf("read config spec of %s: %w", v.Tag, err)
	}
	return configspec.New(raw), nil
}

func (r *Reconciler) install(ctx context.Context, v cleartool.View, current, want configspec.ConfigSpec) error {
	if diff := configspec.Diff(current, want, v.Tag+" (current)", v.Tag+" (new)"); diff != "" {
		log.Debug().Str("tag", v.Tag).Msg("Config spec changes:\n" + diff)
	}
	if err := r.exec.SetSpec(ctx, v, want.String()); err != nil {
		return fmt.Errorf("set config spec of %s: %w", v.Tag, err)
	}
	return nil
}

// desiredSpec is the spec a plain view should carry. Without an explicit spec
// the view's current selection rules are kept.
func desiredSpec(cfg Config, current configspec.ConfigSpec) configspec.ConfigSpec {
	spec := configspec.New(cfg.ConfigSpec)
	if spec.IsEmpty() {
		spec = current
	}
	if len(cfg.LoadRules) > 0 {
		spec = spec.ReplaceLoadRules(cfg.LoadRules, cfg.Windows)
	}
	return spec
}

// keepsFrozenRules reports whether the view's current selection rules carry
// over into the next build. Those still hold the previous build's freeze.
func keepsFrozenRules(cfg Config) bool {
	return cfg.Live && cfg.FreezeLiveViews && cfg.Stream == "" && configspec.New(cfg.ConfigSpec).IsEmpty()
}

func sameStream(a, b string) bool {
	return strings.TrimPrefix(a, "stream:") == strings.TrimPrefix(b, "stream:")
}
