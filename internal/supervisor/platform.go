package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DefaultOOMScorePath is the procfs file adjusted on a data-sync promotion.
const DefaultOOMScorePath = "/proc/self/oom_score_adj"

// ProcessPlatform grants the foreground state to the current process.
//
// A promotion writes the indicator as JSON to IndicatorPath, where a status
// bar or supervisor script can pick it up. A data-sync promotion also lowers
// the kernel OOM score so the process is reclaimed last; lacking the
// privilege to do that is reported as ErrPromotionRejected.
type ProcessPlatform struct {
	IndicatorPath string
	OOMScorePath  string
	OOMScoreAdj   int

	mu        sync.Mutex
	prevScore string
}

// NewProcessPlatform creates a platform writing its indicator to
// indicatorPath and using scoreAdj for data-sync promotions.
func NewProcessPlatform(indicatorPath string, scoreAdj int) *ProcessPlatform {
	return &ProcessPlatform{
		IndicatorPath: indicatorPath,
		OOMScorePath:  DefaultOOMScorePath,
		OOMScoreAdj:   scoreAdj,
	}
}

type indicatorFile struct {
	Indicator
	Class Class `json:"class"`
	PID   int   `json:"pid"`
}

// Promote implements Platform.
func (p *ProcessPlatform) Promote(ctx context.Context, ind Indicator, class Class) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if class == ClassDataSync {
		if err := p.lowerScore(); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(indicatorFile{Indicator: ind, Class: class, PID: os.Getpid()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal indicator: %w", err)
	}
	if err := writeFileAtomic(p.IndicatorPath, data); err != nil {
		p.restoreScore()
		return fmt.Errorf("write indicator: %w", err)
	}
	return nil
}

// Demote implements Platform. Restores the OOM score saved by the last
// data-sync promotion and removes the indicator.
func (p *ProcessPlatform) Demote(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	scoreErr := p.restoreScore()
	rmErr := os.Remove(p.IndicatorPath)
	if errors.Is(rmErr, fs.ErrNotExist) {
		rmErr = nil
	}
	return errors.Join(scoreErr, rmErr)
}

// lowerScore must be called with mu held.
func (p *ProcessPlatform) lowerScore() error {
	cur, err := os.ReadFile(p.OOMScorePath)
	if err != nil {
		return rejection("read oom score", err)
	}
	prev := strings.TrimSpace(string(cur))
	if err := os.WriteFile(p.OOMScorePath, []byte(strconv.Itoa(p.OOMScoreAdj)), 0); err != nil {
		return rejection("write oom score", err)
	}
	if p.prevScore == "" {
		p.prevScore = prev
	}
	return nil
}

// restoreScore must be called with mu held.
func (p *ProcessPlatform) restoreScore() error {
	if p.prevScore == "" {
		return nil
	}
	prev := p.prevScore
	p.prevScore = ""
	if err := os.WriteFile(p.OOMScorePath, []byte(prev), 0); err != nil {
		return fmt.Errorf("restore oom score: %w", err)
	}
	return nil
}

func rejection(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %v", ErrPromotionRejected, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
