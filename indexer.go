package shelfann

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shelfann/shelfann/artifact"
	"github.com/shelfann/shelfann/knn"
	"github.com/shelfann/shelfann/pack"
	"github.com/shelfann/shelfann/routing"
)

// BuildResult is the in-memory outcome of an ANN build for one
// document.
type BuildResult struct {
	// Artifact is the decoded form of the encoded bytes.
	Artifact *artifact.Artifact

	// IDs maps node index to chunk id, in node order.
	IDs []string

	// Encoded is the serialized artifact.
	Encoded []byte

	// Checksum is the SHA-256 hex digest of Encoded.
	Checksum string

	// Dropped counts chunks excluded for unusable vectors or
	// dimension mismatches.
	Dropped int
}

// BuildANN builds the quantized neighbor-graph artifact for one chunk
// package. Chunks with unusable vectors are dropped from both the graph
// and the id map. Returns routing.ErrInsufficientData (wrapped) when no
// usable vectors remain.
func (p *Pipeline) BuildANN(ctx context.Context, pkg *pack.Package) (*BuildResult, error) {
	ids, vectors, err := pkg.EmbeddingMatrix()
	if err != nil {
		return nil, err
	}

	ids, vectors, dropped := normalizeUsable(ids, vectors)
	if len(vectors) == 0 {
		return nil, fmt.Errorf("build ann: %w: no usable vectors", routing.ErrInsufficientData)
	}

	g := p.opts.graph.clamped()
	p.opts.logger.Info("building neighbor graph",
		"nodes", len(vectors),
		"dim", len(vectors[0]),
		"m", g.M,
		"dropped", dropped,
	)

	neighbors, err := knn.BuildGraph(ctx, vectors, knn.Options{
		M:           g.M,
		BlockSize:   g.BlockSize,
		Concurrency: g.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("build ann: %w", err)
	}

	a, err := artifact.FromVectors(vectors, neighbors, 0, g.EFSearch)
	if err != nil {
		return nil, fmt.Errorf("build ann: %w", err)
	}

	encoded, err := a.Encode()
	if err != nil {
		return nil, fmt.Errorf("build ann: %w", err)
	}

	return &BuildResult{
		Artifact: a,
		IDs:      ids,
		Encoded:  encoded,
		Checksum: artifact.Checksum(encoded),
		Dropped:  dropped,
	}, nil
}

// IndexReport describes the files written for one indexed package.
type IndexReport struct {
	ArtifactPath string
	IDMapPath    string
	ReadyPath    string
	Info         *pack.IndexInfo
	Nodes        int
	Dropped      int
}

// IndexPackageFile reads a chunk package, builds its ANN artifact and
// writes three outputs next to each other in outDir: the artifact
// binary, the gzip JSON id map, and the "ready" package carrying the
// ann_index metadata block (checksums, sizes, optionally the inline
// artifact). If outDir is empty, outputs go next to the source file.
func (p *Pipeline) IndexPackageFile(ctx context.Context, srcPath, outDir string) (*IndexReport, error) {
	pkg, err := pack.ReadFile(srcPath)
	if err != nil {
		return nil, err
	}

	res, err := p.BuildANN(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", filepath.Base(srcPath), err)
	}

	if outDir == "" {
		outDir = filepath.Dir(srcPath)
	}
	base := packageBaseName(srcPath)
	artifactName := base + ".ann.bin"
	idMapName := base + ".ann.idmap.json.gz"
	readyName := base + ".ann.ready.json"

	artifactPath := filepath.Join(outDir, artifactName)
	if _, err := res.Artifact.SaveToFile(artifactPath); err != nil {
		return nil, fmt.Errorf("index %s: %w", filepath.Base(srcPath), err)
	}

	idMapPath := filepath.Join(outDir, idMapName)
	idMapBytes, err := pack.WriteIDMapFile(idMapPath, res.IDs)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", filepath.Base(srcPath), err)
	}

	g := p.opts.graph.clamped()
	info := &pack.IndexInfo{
		Algorithm:           "hnsw",
		EmbeddingDimensions: res.Artifact.Dim,
		Distance:            "cosine",
		Params: pack.Params{
			M:              g.M,
			EFConstruction: g.EFConstruction,
			EFSearch:       g.EFSearch,
		},
		ArtifactName:     artifactName,
		ArtifactChecksum: res.Checksum,
		ArtifactSize:     len(res.Encoded),
		IDMapName:        idMapName,
		IDMapChecksum:    artifact.Checksum(idMapBytes),
		IDMapSize:        len(idMapBytes),
	}
	if p.opts.inline {
		info.ArtifactBase64 = base64.StdEncoding.EncodeToString(res.Encoded)
		info.IDMap = res.IDs
	}

	pkg.AttachIndex(info)
	readyPath := filepath.Join(outDir, readyName)
	if err := pkg.WriteFile(readyPath); err != nil {
		return nil, fmt.Errorf("index %s: %w", filepath.Base(srcPath), err)
	}

	p.opts.logger.WithSource(srcPath).Info("indexed package",
		"nodes", res.Artifact.NodeCount(),
		"scale", res.Artifact.Scale,
		"checksum", res.Checksum,
		"artifact", artifactPath,
	)

	return &IndexReport{
		ArtifactPath: artifactPath,
		IDMapPath:    idMapPath,
		ReadyPath:    readyPath,
		Info:         info,
		Nodes:        res.Artifact.NodeCount(),
		Dropped:      res.Dropped,
	}, nil
}

// packageBaseName strips the container extensions from a package file
// name: "alpha_processed_export.json" -> "alpha_processed_export",
// "alpha.bin" -> "alpha".
func packageBaseName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".json", ".bin"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
