// Package workspace loads an Anchor workspace: the program IDs declared in
// Anchor.toml and the IDLs built under target/idl.
package workspace

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

// ManifestName is the workspace manifest file.
const ManifestName = "Anchor.toml"

// DefaultCluster selects the [programs.<cluster>] table read by Load.
const DefaultCluster = "localnet"

// ErrClosed is returned by a workspace after Close.
var ErrClosed = errors.New("workspace closed")

// ErrProgramNotFound is returned for a program absent from the manifest.
var ErrProgramNotFound = errors.New("program not found in workspace")

// Provider is the [provider] table of Anchor.toml.
type Provider struct {
	Cluster string `toml:"cluster"`
	Wallet  string `toml:"wallet"`
}

type manifest struct {
	Provider Provider                     `toml:"provider"`
	Programs map[string]map[string]string `toml:"programs"`
	Scripts  map[string]string            `toml:"scripts"`
}

// IDL is the subset of an Anchor IDL the simulator needs.
type IDL struct {
	Name         string
	Version      string
	Address      string
	Instructions []string
	Accounts     []string
	Raw          []byte
}

// Program is one deployed program of the workspace.
type Program struct {
	Name string
	ID   string
	// IDL is nil when target/idl has no file for the program.
	IDL *IDL
}

// Workspace is a loaded Anchor project.
type Workspace struct {
	Root     string
	Cluster  string
	Provider Provider
	Scripts  map[string]string

	mu       sync.RWMutex
	programs map[string]Program
	closed   bool
}

// Load reads dir/Anchor.toml and the IDLs under dir/target/idl for the
// programs of DefaultCluster.
func Load(dir string) (*Workspace, error) {
	return LoadCluster(dir, DefaultCluster)
}

// LoadCluster is Load for an explicit [programs.<cluster>] table.
func LoadCluster(dir, cluster string) (*Workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(root, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestName, err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}

	ws := &Workspace{
		Root:     root,
		Cluster:  cluster,
		Provider: m.Provider,
		Scripts:  m.Scripts,
		programs: map[string]Program{},
	}
	for name, id := range m.Programs[cluster] {
		idl, err := loadIDL(filepath.Join(root, "target", "idl", name+".json"))
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", name, err)
		}
		ws.programs[name] = Program{Name: name, ID: id, IDL: idl}
	}
	return ws, nil
}

func loadIDL(path string) (*IDL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid idl json in %s", path)
	}

	doc := gjson.ParseBytes(data)
	idl := &IDL{
		// Anchor ≥0.30 moved name and version under metadata.
		Name:    firstString(doc, "metadata.name", "name"),
		Version: firstString(doc, "metadata.version", "version"),
		Address: firstString(doc, "address", "metadata.address"),
		Raw:     data,
	}
	for _, ix := range doc.Get("instructions.#.name").Array() {
		idl.Instructions = append(idl.Instructions, ix.String())
	}
	for _, acc := range doc.Get("accounts.#.name").Array() {
		idl.Accounts = append(idl.Accounts, acc.String())
	}
	return idl, nil
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}

// Program returns a program by its Anchor.toml name.
func (w *Workspace) Program(name string) (Program, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return Program{}, ErrClosed
	}
	p, ok := w.programs[name]
	if !ok {
		return Program{}, fmt.Errorf("%w: %s", ErrProgramNotFound, name)
	}
	return p, nil
}

// Programs returns the program names in lexical order.
func (w *Workspace) Programs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return nil
	}
	return slices.Sorted(maps.Keys(w.programs))
}

// Wallet returns the provider wallet path with a leading ~ expanded.
func (w *Workspace) Wallet() string {
	wallet := w.Provider.Wallet
	if rest, ok := strings.CutPrefix(wallet, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return wallet
}

// Close releases the workspace. It is idempotent.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.programs = nil
	return nil
}

// Closed reports whether Close was called.
func (w *Workspace) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}
