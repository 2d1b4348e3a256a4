package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/sentiment/internal/storage"
)

// Bundle layout under a model root.
const (
	CurrentFile     = "CURRENT"
	BundlesDir      = "bundles"
	TmpDir          = "tmp"
	ManifestFile    = "manifest.json"
	VectorizerAsset = "vectorizer.gob"
	ClassifierAsset = "classifier.gob"

	// BundleFormatVersion is bumped whenever the asset encoding changes.
	BundleFormatVersion = 1

	DefaultKeepBundles = 3
)

// A Model holds a fitted normalizer, vectorizer and classifier that were
// trained together. A Model is never mutated after it is built or loaded.
type Model struct {
	normalizer *Normalizer
	vectorizer *Vectorizer
	classifier *Classifier
	manifest   Manifest
}

// Manifest describes a persisted bundle generation.
type Manifest struct {
	FormatVersion      int                 `json:"format_version"`
	Generation         uint64              `json:"generation"`
	CreatedAt          time.Time           `json:"created_at"`
	Language           Language            `json:"language"`
	Normalizer         string              `json:"normalizer"`
	Features           int                 `json:"features"`
	Labels             []string            `json:"labels"`
	ValidationAccuracy float64             `json:"validation_accuracy"`
	Files              map[string]FileMeta `json:"files"`
	Checksum           storage.Checksum    `json:"checksum"`
}

// FileMeta describes a single asset within a bundle.
type FileMeta struct {
	Size     int64            `json:"size"`
	Checksum storage.Checksum `json:"checksum"`
}

func newModel(n *Normalizer, v *Vectorizer, c *Classifier) *Model {
	return &Model{
		normalizer: n,
		vectorizer: v,
		classifier: c,
		manifest: Manifest{
			FormatVersion: BundleFormatVersion,
			Language:      n.Language(),
			Normalizer:    n.Fingerprint(),
			Features:      v.Dim(),
			Labels:        c.Labels(),
		},
	}
}

// Normalizer returns the normalizer the model was trained with.
func (m *Model) Normalizer() *Normalizer { return m.normalizer }

// Vectorizer returns the fitted vectorizer.
func (m *Model) Vectorizer() *Vectorizer { return m.vectorizer }

// Classifier returns the fitted classifier.
func (m *Model) Classifier() *Classifier { return m.classifier }

// Manifest returns the bundle metadata. Generation is zero for a model that
// has not been written or loaded.
func (m *Model) Manifest() Manifest {
	return m.manifest.clone()
}

// Labels returns the class labels in score order.
func (m *Model) Labels() []string {
	return m.classifier.Labels()
}

// Scores runs normalize, vectorize and classify on raw text.
func (m *Model) Scores(text string) ([]LabelScore, error) {
	vec, err := m.vectorizer.Transform(m.normalizer.Normalize(text))
	if err != nil {
		return nil, err
	}
	return m.classifier.PredictProba(vec)
}

// WriteOpt is a functional option for Model.Write.
type WriteOpt func(o *writeOptions)

type writeOptions struct {
	validationAccuracy float64
	keep               int
	logger             *slog.Logger
	now                func() time.Time
}

// WithValidationAccuracy records held-out accuracy in the manifest.
func WithValidationAccuracy(acc float64) WriteOpt {
	return func(o *writeOptions) { o.validationAccuracy = acc }
}

// WithKeepBundles sets how many generations survive pruning. Values below
// one keep every generation.
func WithKeepBundles(n int) WriteOpt {
	return func(o *writeOptions) { o.keep = n }
}

// WithWriteLogger sets the logger used while writing.
func WithWriteLogger(logger *slog.Logger) WriteOpt {
	return func(o *writeOptions) { o.logger = logger }
}

// Write persists the model as the next generation under root and makes it
// current. The bundle is staged in root/tmp and renamed into place before
// CURRENT is atomically replaced, so readers see either the previous bundle
// or this one. It returns the written manifest.
func (m *Model) Write(root string, opts ...WriteOpt) (Manifest, error) {
	o := writeOptions{keep: DefaultKeepBundles, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	bundles := filepath.Join(root, BundlesDir)
	tmp := filepath.Join(root, TmpDir)
	for _, dir := range []string{root, bundles, tmp} {
		if err := storage.EnsureDir(dir); err != nil {
			return Manifest{}, fmt.Errorf("write model: %w", err)
		}
	}

	gen, err := nextGeneration(root)
	if err != nil {
		return Manifest{}, fmt.Errorf("write model: %w", err)
	}

	staging, err := os.MkdirTemp(tmp, "bundle-*")
	if err != nil {
		return Manifest{}, fmt.Errorf("write model: create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	vecData, err := m.vectorizer.MarshalBinary()
	if err != nil {
		return Manifest{}, err
	}
	clsData, err := m.classifier.MarshalBinary()
	if err != nil {
		return Manifest{}, err
	}

	man := m.Manifest()
	man.FormatVersion = BundleFormatVersion
	man.Generation = gen
	man.CreatedAt = o.now().UTC().Truncate(time.Second)
	man.ValidationAccuracy = o.validationAccuracy
	man.Files = make(map[string]FileMeta)

	for name, data := range map[string][]byte{VectorizerAsset: vecData, ClassifierAsset: clsData} {
		if err := storage.WriteFileSync(filepath.Join(staging, name), data, storage.FilePerm); err != nil {
			return Manifest{}, fmt.Errorf("write model: %w", err)
		}
		man.Files[name] = FileMeta{Size: int64(len(data)), Checksum: storage.ComputeChecksum(data)}
	}

	manData, err := MarshalManifest(&man)
	if err != nil {
		return Manifest{}, fmt.Errorf("write model: %w", err)
	}
	if err := storage.WriteFileSync(filepath.Join(staging, ManifestFile), manData, storage.FilePerm); err != nil {
		return Manifest{}, fmt.Errorf("write model: %w", err)
	}
	if err := storage.FsyncDir(staging); err != nil {
		return Manifest{}, fmt.Errorf("write model: %w", err)
	}

	if err := storage.RenameDir(staging, filepath.Join(bundles, bundleName(gen))); err != nil {
		return Manifest{}, fmt.Errorf("write model: %w", err)
	}
	committed = true

	current := []byte(strconv.FormatUint(gen, 10) + "\n")
	if err := storage.AtomicWriteFile(filepath.Join(root, CurrentFile), current, tmp); err != nil {
		return Manifest{}, fmt.Errorf("write model: activate generation %d: %w", gen, err)
	}
	o.logger.Info("model bundle written",
		"root", root,
		"generation", gen,
		"features", man.Features,
		"labels", man.Labels,
	)

	if o.keep > 0 {
		if err := pruneBundles(bundles, gen, o.keep, o.logger); err != nil {
			o.logger.Warn("prune old bundles", "error", err)
		}
	}

	m.manifest = man
	return man.clone(), nil
}

func (man Manifest) clone() Manifest {
	out := man
	out.Labels = append([]string(nil), man.Labels...)
	if man.Files != nil {
		out.Files = make(map[string]FileMeta, len(man.Files))
		for k, v := range man.Files {
			out.Files[k] = v
		}
	}
	return out
}

func bundleName(gen uint64) string {
	return fmt.Sprintf("%06d", gen)
}

// nextGeneration returns one past the highest generation named by CURRENT
// or present in bundles/.
func nextGeneration(root string) (uint64, error) {
	gen, err := ReadCurrentGeneration(os.DirFS(root))
	if err != nil && !errors.Is(err, ErrAssetMissing) {
		return 0, err
	}
	dirs, err := storage.ListSubdirs(filepath.Join(root, BundlesDir))
	if err != nil {
		return 0, err
	}
	for _, d := range dirs {
		if n, err := strconv.ParseUint(d, 10, 64); err == nil && n > gen {
			gen = n
		}
	}
	return gen + 1, nil
}

// pruneBundles removes generations older than the newest keep.
func pruneBundles(bundles string, current uint64, keep int, logger *slog.Logger) error {
	dirs, err := storage.ListSubdirs(bundles)
	if err != nil {
		return err
	}
	var gens []uint64
	for _, d := range dirs {
		if n, err := strconv.ParseUint(d, 10, 64); err == nil && n <= current {
			gens = append(gens, n)
		}
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] > gens[j] })
	if len(gens) <= keep {
		return nil
	}
	var errs []error
	for _, g := range gens[keep:] {
		if err := os.RemoveAll(filepath.Join(bundles, bundleName(g))); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("pruned bundle", "generation", g)
	}
	return errors.Join(errs...)
}

// ReadCurrentGeneration reads the active generation number from CURRENT.
// A missing CURRENT yields ErrAssetMissing.
func ReadCurrentGeneration(fsys fs.FS) (uint64, error) {
	data, err := fs.ReadFile(fsys, CurrentFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: no %s", ErrAssetMissing, CurrentFile)
		}
		return 0, fmt.Errorf("read %s: %w", CurrentFile, err)
	}
	s := strings.TrimSpace(string(data))
	gen, err := strconv.ParseUint(s, 10, 64)
	if err != nil || gen == 0 {
		return 0, fmt.Errorf("%w: %s holds %q", ErrBundleCorrupt, CurrentFile, s)
	}
	return gen, nil
}

// ModelFromDisk loads the current bundle under the model root at path.
func ModelFromDisk(path string) (*Model, error) {
	return ModelFromFS(os.DirFS(path))
}

// ModelFromFS loads the current bundle from fsys, verifying every checksum
// and cross-checking the assets before returning. It never returns a
// partially loaded model.
func ModelFromFS(fsys fs.FS) (*Model, error) {
	gen, err := ReadCurrentGeneration(fsys)
	if err != nil {
		return nil, err
	}
	dir := path.Join(BundlesDir, bundleName(gen))

	manData, err := fs.ReadFile(fsys, path.Join(dir, ManifestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: generation %d has no manifest", ErrAssetMissing, gen)
		}
		return nil, fmt.Errorf("read manifest gen %d: %w", gen, err)
	}
	man, err := UnmarshalManifest(manData)
	if err != nil {
		return nil, fmt.Errorf("manifest gen %d: %w", gen, err)
	}
	if man.Generation != gen {
		return nil, fmt.Errorf("%w: manifest generation %d in bundle %d", ErrBundleCorrupt, man.Generation, gen)
	}
	if man.FormatVersion != BundleFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrBundleCorrupt, man.FormatVersion, BundleFormatVersion)
	}

	vecData, err := readAsset(fsys, dir, VectorizerAsset, man)
	if err != nil {
		return nil, err
	}
	clsData, err := readAsset(fsys, dir, ClassifierAsset, man)
	if err != nil {
		return nil, err
	}

	vectorizer := &Vectorizer{}
	if err := vectorizer.UnmarshalBinary(vecData); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBundleCorrupt, err)
	}
	classifier := NewClassifier(ClassifierConfig{})
	if err := classifier.UnmarshalBinary(clsData); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBundleCorrupt, err)
	}

	if vectorizer.Dim() != classifier.Dim() || vectorizer.Dim() != man.Features {
		return nil, fmt.Errorf("%w: vectorizer %d, classifier %d, manifest %d",
			ErrDimensionMismatch, vectorizer.Dim(), classifier.Dim(), man.Features)
	}

	normalizer, err := NewNormalizer(man.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNormalizerMismatch, err)
	}
	if normalizer.Fingerprint() != man.Normalizer {
		return nil, fmt.Errorf("%w: bundle %s, runtime %s", ErrNormalizerMismatch, man.Normalizer, normalizer.Fingerprint())
	}

	return &Model{
		normalizer: normalizer,
		vectorizer: vectorizer,
		classifier: classifier,
		manifest:   *man,
	}, nil
}

func readAsset(fsys fs.FS, dir, name string, man *Manifest) ([]byte, error) {
	meta, ok := man.Files[name]
	if !ok {
		return nil, fmt.Errorf("%w: manifest lists no %s", ErrBundleCorrupt, name)
	}
	data, err := fs.ReadFile(fsys, path.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) != meta.Size {
		return nil, fmt.Errorf("%w: %s is %d bytes, manifest says %d", ErrBundleCorrupt, name, len(data), meta.Size)
	}
	if err := storage.VerifyChecksum(name, data, meta.Checksum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBundleCorrupt, err)
	}
	return data, nil
}

// MarshalManifest serializes a manifest to JSON and computes its checksum.
// The checksum is computed over the JSON with the checksum field empty.
func MarshalManifest(m *Manifest) ([]byte, error) {
	checksum, err := computeManifestChecksum(m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum: %w", err)
	}
	m.Checksum = checksum

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// UnmarshalManifest deserializes a manifest and verifies its checksum.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: unmarshal manifest: %w", ErrBundleCorrupt, err)
	}

	saved := m.Checksum
	computed, err := computeManifestChecksum(&m)
	if err != nil {
		return nil, fmt.Errorf("compute manifest checksum for verification: %w", err)
	}
	if computed != saved {
		return nil, fmt.Errorf("%w: manifest checksum expected %s, got %s", ErrBundleCorrupt, saved, computed)
	}
	return &m, nil
}

func computeManifestChecksum(m *Manifest) (storage.Checksum, error) {
	saved := m.Checksum
	m.Checksum = ""
	defer func() { m.Checksum = saved }()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}
