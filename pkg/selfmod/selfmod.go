// Package selfmod guards writes to the system's own source tree with
// static safe-zone/protected-path sets, a backup-before-write discipline,
// and syntax-validated apply with automatic rollback.
package selfmod

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/corepilot/core/internal/apperrors"
	"github.com/corepilot/core/internal/logging"
)

// RiskLevel is the risk grade attached to a proposed modification.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ModType is the kind of modification being proposed; it determines the
// RiskLevel.
type ModType string

const (
	ModAdd         ModType = "add"
	ModModify      ModType = "modify"
	ModOptimize    ModType = "optimize"
	ModRefactor    ModType = "refactor"
	ModDelete      ModType = "delete"
	ModChangeAPI   ModType = "change_api"
	ModModifyCore  ModType = "modify_core"
)

// RiskFor returns the risk level a ModType implies: add_* -> low,
// modify/optimize/refactor -> medium, delete/change_api/modify_core ->
// high.
func RiskFor(t ModType) RiskLevel {
	switch {
	case strings.HasPrefix(string(t), "add"):
		return RiskLow
	case t == ModModify || t == ModOptimize || t == ModRefactor:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Backup records a timestamped copy of a file's original content and its
// hash, restorable via Rollback.
type Backup struct {
	Path         string    `yaml:"path"`
	BackupPath   string    `yaml:"backup_path"`
	ContentHash  string    `yaml:"content_hash"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// Proposal is the approval record returned by ProposeModification.
type Proposal struct {
	ID          string    `yaml:"id"`
	Path        string    `yaml:"path"`
	Type        ModType   `yaml:"type"`
	Description string    `yaml:"description"`
	Risk        RiskLevel `yaml:"risk"`
	Backup      Backup    `yaml:"backup"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// ApplyResult is returned by ApplyModification.
type ApplyResult struct {
	Success    bool
	RolledBack bool
	Err        error
}

// Gate is the Self-Modification Gate: a fixed safe-zone and protected-path
// set, guarding writes under BackupDir.
type Gate struct {
	mu          sync.Mutex
	safeZones   map[string]bool
	protected   map[string]bool
	backupDir   string
	logger      logging.Logger
	now         func() time.Time
}

// New returns a Gate restricted to safeZones (a fixed set of modifiable
// file paths) and protected (paths that may never be modified, checked
// first so rejection never requires taking a backup).
func New(safeZones, protected []string, backupDir string, logger logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NoOp{}
	}
	g := &Gate{
		safeZones: make(map[string]bool, len(safeZones)),
		protected: make(map[string]bool, len(protected)),
		backupDir: backupDir,
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range safeZones {
		g.safeZones[p] = true
	}
	for _, p := range protected {
		g.protected[p] = true
	}
	return g
}

// CanModify reports whether path may be modified: it must exist, must
// not be protected, and must be in the safe zone.
func (g *Gate) CanModify(path string) bool {
	if g.protected[path] {
		return false
	}
	if !g.safeZones[path] {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

// CreateBackup copies path to a timestamped backup under backupDir,
// recording the original content hash.
func (g *Gate) CreateBackup(path string) (Backup, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Backup{}, fmt.Errorf("selfmod: read %s: %w", path, err)
	}
	ts := g.now().Format("20060102_150405")
	name := filepath.Base(path)
	backupPath := filepath.Join(g.backupDir, fmt.Sprintf("%s.backup.%s", name, ts))

	if err := os.MkdirAll(g.backupDir, 0o755); err != nil {
		return Backup{}, fmt.Errorf("selfmod: mkdir backup dir: %w", err)
	}
	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return Backup{}, fmt.Errorf("selfmod: write backup: %w", err)
	}

	backup := Backup{
		Path:        path,
		BackupPath:  backupPath,
		ContentHash: hashOf(content),
		CreatedAt:   g.now(),
	}
	g.logger.Info("self-modification backup created", map[string]interface{}{"path": path, "backup_path": backupPath})
	return backup, nil
}

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ProposeModification rejects a protected/not-safe-zone path before any
// backup is taken, else backs up path and returns an approval record
// carrying the modification's risk level.
func (g *Gate) ProposeModification(path string, modType ModType, description string) (Proposal, error) {
	if !g.CanModify(path) {
		return Proposal{}, apperrors.New("ProposeModification", "protected_path", apperrors.ErrProtectedPath)
	}
	backup, err := g.CreateBackup(path)
	if err != nil {
		return Proposal{}, err
	}
	return Proposal{
		ID:          uuid.NewString(),
		Path:        path,
		Type:        modType,
		Description: description,
		Risk:        RiskFor(modType),
		Backup:      backup,
		CreatedAt:   g.now(),
	}, nil
}

// ApplyModification writes newContent, then validates it syntactically
// for .go files by parsing; a parse failure triggers automatic rollback
// from the backup.
func (g *Gate) ApplyModification(path, newContent string, proposal Proposal) ApplyResult {
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return ApplyResult{Success: false, Err: fmt.Errorf("selfmod: write %s: %w", path, err)}
	}

	if strings.HasSuffix(path, ".go") {
		if _, err := parser.ParseFile(token.NewFileSet(), path, newContent, parser.AllErrors); err != nil {
			rollbackErr := g.Rollback(proposal.Backup, path)
			g.logger.Warn("self-modification syntax validation failed, rolled back", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			return ApplyResult{Success: false, RolledBack: rollbackErr == nil, Err: apperrors.New("ApplyModification", "syntax_invalid", apperrors.ErrSyntaxInvalid)}
		}
	}
	return ApplyResult{Success: true}
}

// Rollback restores path from backup.
func (g *Gate) Rollback(backup Backup, path string) error {
	content, err := os.ReadFile(backup.BackupPath)
	if err != nil {
		return fmt.Errorf("selfmod: read backup: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("selfmod: restore %s: %w", path, err)
	}
	return nil
}

// ContentHash returns the sha256 hex digest of path's current content, used
// to confirm that re-applying a modification yields the same final file
// hash as the first application.
func ContentHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashOf(content), nil
}

// MarshalProposal renders a Proposal as YAML for the backup-metadata
// sidecar file.
func MarshalProposal(p Proposal) ([]byte, error) {
	return yaml.Marshal(p)
}
