package cleartool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/masmgr/ccbuild-go/internal/configspec"
)

// activityDelimiter separates the fields of DescribeActivity output.
const activityDelimiter = "|#|"

var (
	viewUUIDRegex = regexp.MustCompile(`view_uuid:(\S+)`)

	notRegisteredMessages = []string{
		"No matching entries found for view tag",
		"No matching entries found for view uuid",
		"View tag not found",
	}
	unreachableMessages = []string{
		"Unable to contact",
		"Unable to communicate with",
		"Unable to get view info",
		"Unable to establish connection",
	}
)

// Runner runs an external command in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ToolOptions configures a Tool.
type ToolOptions struct {
	Executable string // default "cleartool"
	Runner     Runner // default runs the executable with os/exec
}

// Tool runs the cleartool executable.
type Tool struct {
	executable string
	run        Runner
}

// NewTool creates a process-backed Executor.
func NewTool(opts ToolOptions) *Tool {
	t := &Tool{executable: opts.Executable, run: opts.Runner}
	if t.executable == "" {
		t.executable = "cleartool"
	}
	if t.run == nil {
		t.run = execRunner
	}
	return t
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// SplitParams splits a configured parameter string the way a shell would.
func SplitParams(params string) ([]string, error) {
	if strings.TrimSpace(params) == "" {
		return nil, nil
	}
	fields, err := shlex.Split(params, true)
	if err != nil {
		return nil, fmt.Errorf("split parameters %q: %w", params, err)
	}
	return fields, nil
}

func (t *Tool) exec(ctx context.Context, dir string, args ...string) (string, error) {
	argv := append([]string{t.executable}, args...)
	log.Debug().Str("dir", dir).Msg(shellquote.Join(argv...))

	out, err := t.run(ctx, dir, t.executable, args...)
	if err != nil {
		return string(out), &CommandError{Args: argv, Dir: dir, Output: string(out), Err: err}
	}
	return string(out), nil
}

// CreateView runs mkview.
func (t *Tool) CreateView(ctx context.Context, v View, storageLocation string, extraParams []string) error {
	args := []string{"mkview"}
	if !v.Live {
		args = append(args, "-snapshot")
	}
	args = append(args, "-tag", v.Tag)
	if v.Stream != "" {
		args = append(args, "-stream", v.Stream)
	}
	switch {
	case storageLocation != "":
		args = append(args, "-stgloc", storageLocation)
	case !hasStorageParam(extraParams):
		args = append(args, "-stgloc", "-auto")
	}
	args = append(args, extraParams...)
	if !v.Live {
		args = append(args, v.LocalPath)
	}

	_, err := t.exec(ctx, "", args...)
	return err
}

func hasStorageParam(params []string) bool {
	for _, p := range params {
		if p == "-vws" || p == "-stgloc" {
			return true
		}
	}
	return false
}

// DestroyView removes a view. Snapshot views without a local folder are
// unregistered by tag and uuid.
func (t *Tool) DestroyView(ctx context.Context, v View) error {
	if v.Live {
		_, err := t.exec(ctx, "", "rmview", "-force", "-tag", v.Tag)
		return err
	}

	if v.LocalPath != "" {
		if exists, _ := t.LocalFolderExists(ctx, v.LocalPath); exists {
			_, err := t.exec(ctx, "", "rmview", "-force", v.LocalPath)
			return err
		}
	}

	if _, err := t.exec(ctx, "", "rmtag", "-view", v.Tag); err != nil {
		return err
	}
	if v.UUID == "" {
		return nil
	}
	_, err := t.exec(ctx, "", "unregister", "-view", "-uuid", v.UUID)
	return err
}

// StartView runs startview.
func (t *Tool) StartView(ctx context.Context, v View) error {
	_, err := t.exec(ctx, "", "startview", v.Tag)
	return err
}

// UpdateView updates a snapshot view's loaded files.
func (t *Tool) UpdateView(ctx context.Context, v View) error {
	_, err := t.exec(ctx, "", "update", "-force", "-overwrite", "-log", os.DevNull, v.LocalPath)
	return err
}

// GetSpec returns the view's config spec.
func (t *Tool) GetSpec(ctx context.Context, v View) (string, error) {
	return t.exec(ctx, "", "catcs", "-tag", v.Tag)
}

// SetSpec installs spec through a temporary file.
func (t *Tool) SetSpec(ctx context.Context, v View, spec string) error {
	f, err := os.CreateTemp("", "configspec-*.cs")
	if err != nil {
		return fmt.Errorf("create config spec file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(spec); err != nil {
		f.Close()
		return fmt.Errorf("write config spec file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write config spec file: %w", err)
	}

	if v.Live {
		_, err = t.exec(ctx, "", "setcs", "-tag", v.Tag, f.Name())
		return err
	}
	_, err = t.exec(ctx, v.LocalPath, "setcs", "-overwrite", "-force", f.Name())
	return err
}

// SyncToStream regenerates the config spec from the view's stream.
func (t *Tool) SyncToStream(ctx context.Context, v View) error {
	if v.Live {
		_, err := t.exec(ctx, "", "setcs", "-tag", v.Tag, "-stream")
		return err
	}
	_, err := t.exec(ctx, v.LocalPath, "setcs", "-overwrite", "-force", "-stream")
	return err
}

// GetRegistrationInfo runs lsview for tag.
func (t *Tool) GetRegistrationInfo(ctx context.Context, tag string) (*View, bool, error) {
	return t.lsview(ctx, tag, tag)
}

// FindViewByUUID runs lsview for the view with uuid.
func (t *Tool) FindViewByUUID(ctx context.Context, uuid string) (*View, bool, error) {
	return t.lsview(ctx, "", "-uuid", uuid)
}

func (t *Tool) lsview(ctx context.Context, tag string, selector ...string) (*View, bool, error) {
	args := append([]string{"lsview", "-long", "-properties", "-full"}, selector...)
	out, err := t.exec(ctx, "", args...)
	name := strings.Join(selector, " ")

	if containsAny(out, notRegisteredMessages) {
		return nil, false, nil
	}
	if containsAny(out, unreachableMessages) {
		v := parseRegistration(tag, out)
		if err == nil {
			err = errors.New(strings.TrimSpace(out))
		}
		return v, true, fmt.Errorf("view %s: %w: %w", name, ErrHostUnreachable, err)
	}
	if err != nil {
		return nil, false, err
	}
	return parseRegistration(tag, out), true, nil
}

// parseRegistration reads the fields of lsview -long -properties output. An
// empty tag is taken from the output.
func parseRegistration(tag, out string) *View {
	v := &View{Tag: tag}
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Tag":
			if v.Tag == "" {
				v.Tag = value
			}
		case "View uuid":
			v.UUID = value
		case "View on host", "Server host":
			if v.Host == "" {
				v.Host = value
			}
		case "View server access path", "Global path":
			if v.LocalPath == "" {
				v.LocalPath = value
			}
		case "Properties":
			v.Live = !strings.Contains(value, "snapshot")
		}
	}
	return v
}

// LocalFolderExists reports whether path is an existing directory.
func (t *Tool) LocalFolderExists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// RemoveLocalFolder deletes path and everything below it.
func (t *Tool) RemoveLocalFolder(_ context.Context, path string) error {
	log.Info().Str("path", path).Msg("Removing view folder")
	return os.RemoveAll(path)
}

// GetLocalIdentityMarker returns the view uuid recorded in a snapshot root.
func (t *Tool) GetLocalIdentityMarker(_ context.Context, path string) (string, error) {
	for _, name := range []string{"view.dat", ".view.dat"} {
		data, err := os.ReadFile(filepath.Join(path, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return parseIdentityMarker(path, string(data))
	}
	return "", fmt.Errorf("%s: %w: %w", path, ErrNoIdentityMarker, fs.ErrNotExist)
}

func parseIdentityMarker(path, data string) (string, error) {
	m := viewUUIDRegex.FindStringSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%s: %w", path, ErrNoIdentityMarker)
	}
	return m[1], nil
}

// QueryLog runs lshistory. The output is returned even when the command
// fails, so callers can inspect partial results.
func (t *Tool) QueryLog(ctx context.Context, q LogQuery) (string, error) {
	args := []string{"lshistory", "-all"}
	if !q.Since.IsZero() {
		args = append(args, "-since", configspec.FormatTime(q.Since))
	}
	args = append(args, "-fmt", q.Format)
	if q.Scope != "" {
		args = append(args, "-branch", "brtype:"+q.Scope)
	}
	args = append(args, "-nco")
	args = append(args, q.Paths...)

	return t.exec(ctx, q.View.LocalPath, args...)
}

// GetStreamBinding returns the selector of the stream the view is attached to.
func (t *Tool) GetStreamBinding(ctx context.Context, v View) (string, error) {
	out, err := t.exec(ctx, "", "lsstream", "-fmt", "%Xn", "-view", v.Tag)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HasPendingLocalEdits reports whether checkouts exist on branch below paths.
func (t *Tool) HasPendingLocalEdits(ctx context.Context, branch string, v View, paths []string) (bool, error) {
	args := []string{"lscheckout", "-short", "-cview", "-recurse", "-brtype", branch}
	args = append(args, paths...)

	out, err := t.exec(ctx, v.LocalPath, args...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// DescribeActivity runs lsactivity for name.
func (t *Tool) DescribeActivity(ctx context.Context, name string) (ActivityInfo, error) {
	selector := name
	if !strings.HasPrefix(selector, "activity:") {
		selector = "activity:" + selector
	}
	format := strings.Join([]string{"%Xn", "%[headline]p", "%[stream]Xp", "%u", "%[contrib_acts]Xp"}, activityDelimiter)

	out, err := t.exec(ctx, "", "lsactivity", "-fmt", format, selector)
	if err != nil {
		return ActivityInfo{}, err
	}
	return parseActivity(name, out)
}

func parseActivity(name, out string) (ActivityInfo, error) {
	fields := strings.Split(strings.TrimSpace(out), activityDelimiter)
	if len(fields) < 4 {
		return ActivityInfo{}, fmt.Errorf("unexpected lsactivity output for %s: %q", name, out)
	}

	info := ActivityInfo{
		Name:     strings.TrimSpace(fields[0]),
		Headline: strings.TrimSpace(fields[1]),
		Stream:   strings.TrimSpace(fields[2]),
		Owner:    strings.TrimSpace(fields[3]),
	}
	if info.Name == "" {
		info.Name = name
	}
	if len(fields) > 4 {
		info.Contributing = strings.Fields(fields[4])
	}
	return info, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
