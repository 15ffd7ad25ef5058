package cleartool

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"

	"github.com/masmgr/ccbuild-go/internal/configspec"
)

// FakeServer is an in-memory Executor for tests. It keeps a registry of view
// tags and local folders and logs every call as "Op arg".
type FakeServer struct {
	Views        map[string]*FakeView    // by tag
	Folders      map[string]string       // local path -> identity marker ("" when none)
	Unreachable  map[string]bool         // tags whose host cannot be contacted
	StreamSpecs  map[string]string       // stream -> generated selection rules
	Logs         map[string]string       // scope -> raw lshistory output
	LogErrors    map[string]error        // scope -> QueryLog error
	PendingEdits map[string]bool         // branch -> checkouts present
	Activities   map[string]ActivityInfo // activity name -> description
	Failures     map[string]error        // operation name -> forced error
	Calls        []string
}

// FakeView is a registered view and its installed spec.
type FakeView struct {
	View
	Spec    string
	Started bool
}

// NewFakeServer creates an empty FakeServer.
func NewFakeServer() *FakeServer {
	return &FakeServer{
		Views:        make(map[string]*FakeView),
		Folders:      make(map[string]string),
		Unreachable:  make(map[string]bool),
		StreamSpecs:  make(map[string]string),
		Logs:         make(map[string]string),
		LogErrors:    make(map[string]error),
		PendingEdits: make(map[string]bool),
		Activities:   make(map[string]ActivityInfo),
		Failures:     make(map[string]error),
	}
}

// AddView registers v with spec. Snapshot views also get their local folder.
func (s *FakeServer) AddView(v View, spec string) *FakeView {
	if v.UUID == "" {
		v.UUID = uuid.NewString()
	}
	fv := &FakeView{View: v, Spec: spec}
	s.Views[v.Tag] = fv
	if !v.Live && v.LocalPath != "" {
		s.Folders[v.LocalPath] = v.UUID
	}
	return fv
}

// CallCount returns how many times op was called.
func (s *FakeServer) CallCount(op string) int {
	n := 0
	for _, c := range s.Calls {
		if c == op || strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (s *FakeServer) record(op string, args ...string) error {
	s.Calls = append(s.Calls, strings.TrimSpace(op+" "+strings.Join(args, " ")))
	return s.Failures[op]
}

func (s *FakeServer) lookup(tag string) (*FakeView, error) {
	fv, ok := s.Views[tag]
	if !ok {
		return nil, fmt.Errorf("view tag not found: %s", tag)
	}
	return fv, nil
}

func (s *FakeServer) CreateView(_ context.Context, v View, storageLocation string, extraParams []string) error {
	if err := s.record("CreateView", v.Tag); err != nil {
		return err
	}
	if _, exists := s.Views[v.Tag]; exists {
		return fmt.Errorf("view tag already exists: %s", v.Tag)
	}
	if !v.Live {
		if _, exists := s.Folders[v.LocalPath]; exists {
			return fmt.Errorf("snapshot view path already exists: %s", v.LocalPath)
		}
	}

	spec := "element * CHECKEDOUT\nelement * /main/LATEST\n"
	if v.Stream != "" {
		spec = s.streamSpec(v.Stream)
	}
	v.UUID = ""
	s.AddView(v, spec)
	return nil
}

func (s *FakeServer) streamSpec(stream string) string {
	if spec, ok := s.StreamSpecs[stream]; ok {
		return spec
	}
	return "element * CHECKEDOUT\nelement * .../" + strings.TrimPrefix(stream, "stream:") + "/LATEST\n"
}

func (s *FakeServer) DestroyView(_ context.Context, v View) error {
	if err := s.record("DestroyView", v.Tag); err != nil {
		return err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return err
	}
	delete(s.Views, v.Tag)
	if !fv.Live && fv.LocalPath != "" && s.Folders[fv.LocalPath] == fv.UUID {
		delete(s.Folders, fv.LocalPath)
	}
	return nil
}

func (s *FakeServer) StartView(_ context.Context, v View) error {
	if err := s.record("StartView", v.Tag); err != nil {
		return err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return err
	}
	fv.Started = true
	return nil
}

func (s *FakeServer) UpdateView(_ context.Context, v View) error {
	if err := s.record("UpdateView", v.Tag); err != nil {
		return err
	}
	_, err := s.lookup(v.Tag)
	return err
}

func (s *FakeServer) GetSpec(_ context.Context, v View) (string, error) {
	if err := s.record("GetSpec", v.Tag); err != nil {
		return "", err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return "", err
	}
	return fv.Spec, nil
}

func (s *FakeServer) SetSpec(_ context.Context, v View, spec string) error {
	if err := s.record("SetSpec", v.Tag); err != nil {
		return err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return err
	}
	fv.Spec = spec
	return nil
}

func (s *FakeServer) SyncToStream(_ context.Context, v View) error {
	if err := s.record("SyncToStream", v.Tag); err != nil {
		return err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return err
	}
	rules := configspec.New(fv.Spec).ExtractLoadRules()
	fv.Spec = configspec.New(s.streamSpec(fv.Stream)).ReplaceLoadRules(rules, false).String()
	return nil
}

func (s *FakeServer) GetRegistrationInfo(_ context.Context, tag string) (*View, bool, error) {
	if err := s.record("GetRegistrationInfo", tag); err != nil {
		return nil, false, err
	}
	fv, ok := s.Views[tag]
	if s.Unreachable[tag] {
		v := &View{Tag: tag}
		if ok {
			copied := fv.View
			v = &copied
		}
		return v, true, fmt.Errorf("view %s: %w", tag, ErrHostUnreachable)
	}
	if !ok {
		return nil, false, nil
	}
	v := fv.View
	return &v, true, nil
}

func (s *FakeServer) FindViewByUUID(_ context.Context, uuid string) (*View, bool, error) {
	if err := s.record("FindViewByUUID", uuid); err != nil {
		return nil, false, err
	}
	for tag, fv := range s.Views {
		if fv.UUID != uuid {
			continue
		}
		v := fv.View
		if s.Unreachable[tag] {
			return &v, true, fmt.Errorf("view %s: %w", tag, ErrHostUnreachable)
		}
		return &v, true, nil
	}
	return nil, false, nil
}

func (s *FakeServer) LocalFolderExists(_ context.Context, path string) (bool, error) {
	if err := s.record("LocalFolderExists", path); err != nil {
		return false, err
	}
	_, ok := s.Folders[path]
	return ok, nil
}

func (s *FakeServer) RemoveLocalFolder(_ context.Context, path string) error {
	if err := s.record("RemoveLocalFolder", path); err != nil {
		return err
	}
	delete(s.Folders, path)
	return nil
}

func (s *FakeServer) GetLocalIdentityMarker(_ context.Context, path string) (string, error) {
	if err := s.record("GetLocalIdentityMarker", path); err != nil {
		return "", err
	}
	marker, ok := s.Folders[path]
	if !ok {
		return "", fmt.Errorf("%s: %w: %w", path, ErrNoIdentityMarker, fs.ErrNotExist)
	}
	if marker == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoIdentityMarker)
	}
	return marker, nil
}

func (s *FakeServer) QueryLog(_ context.Context, q LogQuery) (string, error) {
	if err := s.record("QueryLog", q.Scope); err != nil {
		return "", err
	}
	return s.Logs[q.Scope], s.LogErrors[q.Scope]
}

func (s *FakeServer) GetStreamBinding(_ context.Context, v View) (string, error) {
	if err := s.record("GetStreamBinding", v.Tag); err != nil {
		return "", err
	}
	fv, err := s.lookup(v.Tag)
	if err != nil {
		return "", err
	}
	return fv.Stream, nil
}

func (s *FakeServer) HasPendingLocalEdits(_ context.Context, branch string, v View, paths []string) (bool, error) {
	if err := s.record("HasPendingLocalEdits", branch); err != nil {
		return false, err
	}
	return s.PendingEdits[branch], nil
}

func (s *FakeServer) DescribeActivity(_ context.Context, name string) (ActivityInfo, error) {
	if err := s.record("DescribeActivity", name); err != nil {
		return ActivityInfo{}, err
	}
	info, ok := s.Activities[name]
	if !ok {
		return ActivityInfo{}, fmt.Errorf("activity not found: %s", name)
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}
